/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/devlink/usb"
	"github.com/spf13/cobra"
)

// connectUsbCmd represents the connect-usb command
var connectUsbCmd = &cobra.Command{
	Use:   "connect-usb <vid:pid>",
	Short: "Claim a USB device on the host",
	Long: `Ask the host to open and hold the USB device with the given vendor and
product id (hex, e.g. 403:6001). A previously held device is released first.

Against a running host the device stays claimed after this command exits;
use --release to disconnect it again. Without a running host the device is
held in-process until interrupted.

Example usage:
  devlink connect-usb 2341:0043
  devlink connect-usb --release`,
	Args: func(cmd *cobra.Command, args []string) error {
		release, _ := cmd.Flags().GetBool("release")
		if release {
			return cobra.NoArgs(cmd, args)
		}
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return err
		}
		_, _, err := usb.ParseID(args[0])
		return err
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		release, _ := cmd.Flags().GetBool("release")

		b, local, closeBridge, err := openBridge(ctx, !release)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeBridge()

		if release {
			res, err := b.DisconnectUsb(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			printResult(res)
			return
		}

		vendorID, productID, _ := usb.ParseID(args[0])
		res, err := b.ConnectUsb(ctx, usb.FormatID(vendorID, productID))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(res)
		if !res.Success {
			os.Exit(1)
		}

		if local {
			fmt.Println(mutedStyle.Render("No running host; holding the device until interrupted (ctrl+c)"))
			<-ctx.Done()
		}
	},
}

func init() {
	rootCmd.AddCommand(connectUsbCmd)

	connectUsbCmd.Flags().Bool("release", false, "Disconnect the USB device held by the running host")
}
