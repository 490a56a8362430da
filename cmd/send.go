/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/allbin/devlink/host"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <port> [data]",
	Short: "Send data to a serial port through the host",
	Long: `Send data to a serial port through the device host.

The port is connected, the data written and the port disconnected again.
Data can be provided as:
- Command line argument: devlink send /dev/ttyUSB0 "Hello World"
- From stdin (pipe): echo "test data" | devlink send /dev/ttyUSB0
- Interactive mode: devlink send /dev/ttyUSB0 (prompts for input)

With --wait, replies that arrive within the given duration are printed
before disconnecting.

Example usage:
  devlink send /dev/ttyUSB0 "AT+GMR" --newline --wait 500ms
  devlink send /dev/ttyACM0 0206000300000099 --hex --baud 115200
  echo "test" | devlink send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		var data string
		if len(args) == 2 {
			data = args[1]
		} else {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		}

		baudRate, _ := cmd.Flags().GetInt("baud")
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		wait, _ := cmd.Flags().GetDuration("wait")

		payload := []byte(data)
		if hexMode {
			var err error
			if payload, err = parseHexString(data); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
		} else if addNewline {
			payload = append(payload, '\n')
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout+wait)
		defer cancel()

		if err := sendData(ctx, portPath, baudRate, payload, wait); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().IntP("baud", "b", host.DefaultBaudRate, "Baud rate")
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for the whole exchange")
	sendCmd.Flags().DurationP("wait", "w", 0, "Print replies received within this duration")
}

func promptForData() string {
	fmt.Print(infoStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func parseHexString(hexStr string) ([]byte, error) {
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr) == 0 || len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string must have a non-zero even length")
	}

	out := make([]byte, 0, len(hexStr)/2)
	for i := 0; i < len(hexStr); i += 2 {
		var b byte
		if _, err := fmt.Sscanf(hexStr[i:i+2], "%x", &b); err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s': %w", hexStr[i:i+2], err)
		}
		out = append(out, b)
	}
	return out, nil
}

func sendData(ctx context.Context, portPath string, baudRate int, payload []byte, wait time.Duration) error {
	b, _, closeBridge, err := openBridge(ctx, true)
	if err != nil {
		return err
	}
	defer closeBridge()

	fmt.Printf("%s Opening %s at %d baud...\n", infoStyle.Render("⚡"), portPath, baudRate)
	res, err := b.ConnectSerial(ctx, host.SerialOptions{Port: portPath, BaudRate: baudRate})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	printResult(res)
	defer func() {
		// The exchange context may be spent; disconnect on a fresh one.
		dctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		if res, err := b.DisconnectSerial(dctx); err != nil {
			log.Warn("disconnect failed", "port", portPath, "error", err)
		} else {
			printResult(res)
		}
	}()

	replies := make(chan []byte, 64)
	if wait > 0 {
		unsub := b.OnSerialData(func(data []byte) {
			select {
			case replies <- data:
			default:
			}
		})
		defer unsub()
	}

	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(payload))
	res, err = b.SendSerialData(ctx, payload)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	printResult(res)
	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview(payload))

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case data := <-replies:
			fmt.Printf("%s % X  %s\n", successStyle.Render("↙"), data, mutedStyle.Render(preview(data)))
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// preview shows at most 50 bytes with non-printable bytes replaced.
func preview(data []byte) string {
	suffix := ""
	if len(data) > 50 {
		data, suffix = data[:50], "..."
	}
	out := make([]rune, len(data))
	for i, c := range data {
		if c < 32 || c > 126 {
			out[i] = '·'
		} else {
			out[i] = rune(c)
		}
	}
	return string(out) + suffix
}
