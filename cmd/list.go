/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List USB devices and serial ports",
	Long: `List the USB devices and serial ports the host can see.

Serial port discovery covers communication-capable devices such as USB serial
adapters (ttyUSB*), CDC/ACM devices (ttyACM*), standard ports (ttyS*) and
ARM/Raspberry Pi ports (ttyAMA*). Virtual and pseudo terminals are excluded.

Example usage:
  devlink list
  devlink list --serial --filter usb --table
  devlink list --usb --json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		showUsb, _ := cmd.Flags().GetBool("usb")
		showSerial, _ := cmd.Flags().GetBool("serial")
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		jsonFormat, _ := cmd.Flags().GetBool("json")
		if !showUsb && !showSerial {
			showUsb, showSerial = true, true
		}

		b, _, closeBridge, err := openBridge(cmd.Context(), true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeBridge()

		var devices []usb.Descriptor
		var ports []serial.PortDescriptor
		if showUsb {
			if devices, err = b.ListUsbDevices(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "Error listing USB devices: %v\n", err)
				os.Exit(1)
			}
		}
		if showSerial {
			if ports, err = b.ListSerialPorts(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "Error listing serial ports: %v\n", err)
				os.Exit(1)
			}
			ports = filterPorts(ports, filterType)
		}

		if jsonFormat {
			out := map[string]any{}
			if showUsb {
				out["usbDevices"] = devices
			}
			if showSerial {
				out["serialPorts"] = ports
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if showUsb {
			if tableFormat {
				renderUsbTable(devices)
			} else {
				for _, d := range devices {
					fmt.Printf("%s\t%s %s\n", d.ID(), d.Manufacturer, d.Product)
				}
			}
		}
		if showSerial {
			if len(ports) == 0 {
				if filterType != "" {
					fmt.Printf("No serial ports found matching filter: %s\n", filterType)
				} else {
					fmt.Println("No serial ports found")
				}
				return
			}
			if tableFormat {
				renderSerialTable(ports)
			} else {
				for _, p := range ports {
					fmt.Println(p.Path)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("usb", false, "List USB devices")
	listCmd.Flags().Bool("serial", false, "List serial ports")
	listCmd.Flags().StringP("filter", "f", "", "Filter serial ports by type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().Bool("json", false, "Print the lists as JSON")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []serial.PortDescriptor, filterType string) []serial.PortDescriptor {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []serial.PortDescriptor
	for _, port := range ports {
		name := strings.ToLower(filepath.Base(port.Path))
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

func styledTable(headers ...string) *table.Table {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderUsbTable(devices []usb.Descriptor) {
	fmt.Printf("Found %d USB device(s):\n", len(devices))
	t := styledTable("ID", "Manufacturer", "Product", "Serial")
	for _, d := range devices {
		t.Row(d.ID(), d.Manufacturer, d.Product, d.SerialNumber)
	}
	fmt.Println(t)
}

func renderSerialTable(ports []serial.PortDescriptor) {
	fmt.Printf("Found %d serial port(s):\n", len(ports))
	t := styledTable("Port", "Type", "VID:PID", "Manufacturer", "Serial")
	for _, p := range ports {
		ids := ""
		if p.VendorID != "" {
			ids = p.VendorID + ":" + p.ProductID
		}
		t.Row(p.Path, getPortType(filepath.Base(p.Path)), ids, p.Manufacturer, p.SerialNumber)
	}
	fmt.Println(t)
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
