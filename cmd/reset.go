/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port|--serial S|--usb VID:PID>",
	Short: "Reset a USB device",
	Long: `Perform a USB-level reset on a device. This can recover devices that are
hung or unresponsive without physically unplugging them.

The device will re-enumerate after reset, which may cause the port path
to change (e.g., /dev/ttyUSB0 might become /dev/ttyUSB1). Use serial
numbers to reliably identify devices after reset.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo devlink reset /dev/ttyUSB0          # Reset the adapter behind a port
  sudo devlink reset --serial NC7ILXW1     # Reset by serial number
  sudo devlink reset --usb 403:6001        # Reset by vendor:product id`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		usbFlag, _ := cmd.Flags().GetString("usb")

		selectors := len(args)
		if serialFlag != "" {
			selectors++
		}
		if usbFlag != "" {
			selectors++
		}
		if selectors != 1 {
			return errors.New("requires exactly one of: a port path, --serial or --usb")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !usb.IsResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		serialFlag, _ := cmd.Flags().GetString("serial")
		usbFlag, _ := cmd.Flags().GetString("usb")

		var err error
		switch {
		case serialFlag != "":
			fmt.Printf("Resetting USB device with serial: %s\n", serialFlag)
			err = serial.ResetUSBDeviceBySerial(serialFlag)
		case usbFlag != "":
			fmt.Printf("Resetting USB device: %s\n", usbFlag)
			err = resetByID(usbFlag)
		default:
			fmt.Printf("Resetting USB device: %s\n", args[0])
			err = serial.ResetUSBDevice(args[0])
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, serial.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
			}
			os.Exit(1)
		}

		log.Info("USB device reset", "target", firstNonEmpty(serialFlag, usbFlag, args))
		fmt.Println("USB device reset successfully")
		fmt.Println("Device will re-enumerate (port path may change)")
		fmt.Println("\nUse 'devlink list --table' to see updated device list")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("serial", "s", "", "Reset device by serial number")
	resetCmd.Flags().StringP("usb", "u", "", "Reset device by vendor:product id")
}

func resetByID(id string) error {
	vendorID, productID, err := usb.ParseID(id)
	if err != nil {
		return err
	}
	devices, err := usb.List()
	if err != nil {
		return fmt.Errorf("list USB devices: %w", err)
	}
	dev, err := usb.FindByIDs(devices, vendorID, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	return usb.Reset(dev.BusNumber, dev.DeviceNumber)
}

func firstNonEmpty(serialFlag, usbFlag string, args []string) string {
	switch {
	case serialFlag != "":
		return serialFlag
	case usbFlag != "":
		return usbFlag
	case len(args) > 0:
		return args[0]
	}
	return ""
}
