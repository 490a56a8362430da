/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/allbin/devlink/serial"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

For USB adapters this shows vendor/product IDs, serial number, interface,
bus and device numbers read from sysfs, plus the stable /dev/serial/by-id
and /dev/serial/by-path aliases. --json prints the port descriptor that the
host reports to UI clients.

Examples:
  devlink info /dev/ttyUSB0
  devlink info /dev/ttyACM0 --json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		jsonFormat, _ := cmd.Flags().GetBool("json")

		info, err := serial.GetPortInfo(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			if errors.Is(err, serial.ErrDeviceNotFound) {
				fmt.Fprintln(os.Stderr, "Use 'devlink list --serial' to see available ports")
			}
			os.Exit(1)
		}

		if jsonFormat {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(serial.Describe(info)); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		fmt.Printf("Port Information: %s\n\n", infoStyle.Render(info.Path))
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)

		if info.VendorID != "" || info.ProductID != "" {
			fmt.Println("\nUSB Device Information:")
			printField("Vendor ID", info.VendorID)
			printField("Product ID", info.ProductID)
			printField("Serial", info.SerialNumber)
			printField("Interface", info.InterfaceNumber)
			printField("Bus", info.BusNumber)
			printField("Device", info.DeviceNumber)
			printField("Manufacturer", info.Manufacturer)
			printField("Product", info.Product)
		}

		if info.ByID != "" || info.ByPath != "" {
			fmt.Println("\nAliases:")
			printField("By ID", info.ByID)
			printField("By path", info.ByPath)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("json", false, "Print the port descriptor as JSON")
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %-13s %s\n", label+":", value)
}
