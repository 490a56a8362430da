/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allbin/devlink/internal/kiosk"
	"github.com/spf13/cobra"
)

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit <image>",
	Short: "Send an image to the embossing API",
	Long: `Send an image to the embossing API selected in the kiosk settings.

Depth and speed default to the saved kiosk settings (see 'devlink
kiosk-config'). Every job gets a unique id, sent as the X-Job-ID header.

Example usage:
  devlink submit design.png --name "Front plate"
  devlink submit logo.png --depth 7 --url http://10.0.0.5:5000/api/emboss`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := kiosk.NewStore(cfg.Kiosk.StateFile)
		settings, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading kiosk settings: %v\n", err)
			os.Exit(1)
		}

		image, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading image: %v\n", err)
			os.Exit(1)
		}

		job := kiosk.JobFromSettings(settings)
		job.Image = image
		job.ImageName = filepath.Base(args[0])
		if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), "."); ext != "" {
			job.ImageType = ext
		}
		job.Name, _ = cmd.Flags().GetString("name")
		job.Description, _ = cmd.Flags().GetString("description")
		if cmd.Flags().Changed("depth") {
			job.EmbossingDepth, _ = cmd.Flags().GetInt("depth")
		}
		if cmd.Flags().Changed("speed") {
			job.EmbossingSpeed, _ = cmd.Flags().GetInt("speed")
		}

		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			url = settings.URL()
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		fmt.Printf("%s Sending %s (%d bytes) to %s...\n", infoStyle.Render("📤"), job.ImageName, len(image), url)
		receipt, err := kiosk.NewSubmitter(nil, log.With("component", "kiosk")).Submit(ctx, url, job)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
			os.Exit(1)
		}
		fmt.Printf("%s %s %s\n", successStyle.Render("✓"), receipt.Message, mutedStyle.Render("job "+receipt.JobID))
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("name", "", "Job name")
	submitCmd.Flags().String("description", "", "Job description")
	submitCmd.Flags().Int("depth", 0, "Embossing depth (default from kiosk settings)")
	submitCmd.Flags().Int("speed", 0, "Embossing speed (default from kiosk settings)")
	submitCmd.Flags().String("url", "", "API endpoint (default from kiosk settings)")
	submitCmd.Flags().Duration("timeout", 30*time.Second, "Request timeout")
}
