/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/allbin/devlink/internal/kiosk"
	"github.com/spf13/cobra"
)

// kioskConfigCmd represents the kiosk-config command
var kioskConfigCmd = &cobra.Command{
	Use:   "kiosk-config",
	Short: "Show or change the persisted kiosk settings",
	Long: `Show or change the embossing API settings stored in the kiosk state file
(kiosk.state_file). Without flags the current settings are printed.

Example usage:
  devlink kiosk-config
  devlink kiosk-config --mode web
  devlink kiosk-config --local-url http://localhost:5000/api/emboss --speed 60
  devlink kiosk-config --reset`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := kiosk.NewStore(cfg.Kiosk.StateFile)
		settings, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading kiosk settings: %v\n", err)
			os.Exit(1)
		}

		reset, _ := cmd.Flags().GetBool("reset")
		if reset {
			settings = kiosk.DefaultSettings()
		}

		changed := reset
		flags := cmd.Flags()
		if flags.Changed("mode") {
			mode, _ := flags.GetString("mode")
			settings.Mode = kiosk.Mode(mode)
			changed = true
		}
		for name, field := range map[string]*string{
			"local-url": &settings.LocalURL,
			"web-url":   &settings.WebURL,
		} {
			if flags.Changed(name) {
				*field, _ = flags.GetString(name)
				changed = true
			}
		}
		for name, field := range map[string]*int{
			"speed":        &settings.EmbossingSpeed,
			"duration":     &settings.EmbossingDuration,
			"depth":        &settings.EmbossingDepth,
			"acceleration": &settings.Acceleration,
			"jerk":         &settings.Jerk,
			"cooling":      &settings.CoolingTime,
		} {
			if flags.Changed(name) {
				*field, _ = flags.GetInt(name)
				changed = true
			}
		}

		if changed {
			if err := store.Save(settings); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
				os.Exit(1)
			}
			log.Info("kiosk settings saved", "file", store.Path(), "mode", settings.Mode)
			fmt.Printf("%s Settings saved to %s\n", successStyle.Render("✓"), store.Path())
		}

		out, _ := json.MarshalIndent(settings, "", "  ")
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(kioskConfigCmd)

	kioskConfigCmd.Flags().String("mode", "", "API mode: local or web")
	kioskConfigCmd.Flags().String("local-url", "", "Local API endpoint")
	kioskConfigCmd.Flags().String("web-url", "", "Web API endpoint")
	kioskConfigCmd.Flags().Int("speed", 0, "Embossing speed")
	kioskConfigCmd.Flags().Int("duration", 0, "Embossing duration")
	kioskConfigCmd.Flags().Int("depth", 0, "Embossing depth")
	kioskConfigCmd.Flags().Int("acceleration", 0, "Acceleration")
	kioskConfigCmd.Flags().Int("jerk", 0, "Jerk")
	kioskConfigCmd.Flags().Int("cooling", 0, "Cooling time")
	kioskConfigCmd.Flags().Bool("reset", false, "Restore the default settings")
}
