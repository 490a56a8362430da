package components

import (
	"fmt"

	"github.com/allbin/devlink/internal/tui/colors"
	"github.com/allbin/devlink/internal/tui/styles"
	"github.com/allbin/devlink/serial"
	"github.com/allbin/devlink/usb"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnMark         = "mark"
	columnID           = "id"
	columnManufacturer = "manufacturer"
	columnProduct      = "product"
	columnSerial       = "serial"
	columnPath         = "path"
	columnIDs          = "ids"

	// Row data keys that no column displays.
	keyUsbDevice  = "usbDevice"
	keySerialPort = "serialPort"
)

// DeviceTable lists USB devices or serial ports and marks the connected one.
type DeviceTable struct {
	model   table.Model
	columns []table.Column
	rows    int
}

func newDeviceTable(columns []table.Column) *DeviceTable {
	model := table.New(columns).
		HeaderStyle(styles.TableHeaderStyle).
		HighlightStyle(styles.TableHighlightStyle).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Subtext1).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)).
		WithPageSize(5).
		Focused(false)
	return &DeviceTable{model: model, columns: columns}
}

// NewUsbTable creates the USB device table.
func NewUsbTable() *DeviceTable {
	return newDeviceTable([]table.Column{
		table.NewColumn(columnMark, "", 2),
		table.NewColumn(columnID, "ID", 11),
		table.NewFlexColumn(columnManufacturer, "Manufacturer", 1),
		table.NewFlexColumn(columnProduct, "Product", 2),
		table.NewFlexColumn(columnSerial, "Serial", 1),
	})
}

// NewSerialTable creates the serial port table.
func NewSerialTable() *DeviceTable {
	return newDeviceTable([]table.Column{
		table.NewColumn(columnMark, "", 2),
		table.NewFlexColumn(columnPath, "Port", 2),
		table.NewColumn(columnIDs, "VID:PID", 11),
		table.NewFlexColumn(columnManufacturer, "Manufacturer", 1),
		table.NewFlexColumn(columnSerial, "Serial", 1),
	})
}

func mark(connected bool) any {
	if !connected {
		return ""
	}
	return table.NewStyledCell("●", lipgloss.NewStyle().Foreground(colors.Green))
}

// SetUsbDevices replaces the rows; connected may be nil.
func (t *DeviceTable) SetUsbDevices(devices []usb.Descriptor, connected *usb.Descriptor) {
	rows := make([]table.Row, len(devices))
	for i, d := range devices {
		rows[i] = table.NewRow(table.RowData{
			columnMark:         mark(connected != nil && connected.ID() == d.ID()),
			columnID:           d.ID(),
			columnManufacturer: d.Manufacturer,
			columnProduct:      d.Product,
			columnSerial:       d.SerialNumber,
			keyUsbDevice:       d,
		})
	}
	t.setRows(rows)
}

// SetSerialPorts replaces the rows; connected may be nil.
func (t *DeviceTable) SetSerialPorts(ports []serial.PortDescriptor, connected *serial.PortDescriptor) {
	rows := make([]table.Row, len(ports))
	for i, p := range ports {
		ids := ""
		if p.VendorID != "" {
			ids = fmt.Sprintf("%s:%s", p.VendorID, p.ProductID)
		}
		rows[i] = table.NewRow(table.RowData{
			columnMark:         mark(connected != nil && connected.Path == p.Path),
			columnPath:         p.Path,
			columnIDs:          ids,
			columnManufacturer: p.Manufacturer,
			columnSerial:       p.SerialNumber,
			keySerialPort:      p,
		})
	}
	t.setRows(rows)
}

func (t *DeviceTable) setRows(rows []table.Row) {
	t.rows = len(rows)
	t.model = t.model.WithRows(rows)
}

// Len returns the number of rows.
func (t *DeviceTable) Len() int {
	return t.rows
}

// SelectedUsbDevice returns the highlighted USB device.
func (t *DeviceTable) SelectedUsbDevice() (usb.Descriptor, bool) {
	if t.rows == 0 {
		return usb.Descriptor{}, false
	}
	d, ok := t.model.HighlightedRow().Data[keyUsbDevice].(usb.Descriptor)
	return d, ok
}

// SelectedSerialPort returns the highlighted serial port.
func (t *DeviceTable) SelectedSerialPort() (serial.PortDescriptor, bool) {
	if t.rows == 0 {
		return serial.PortDescriptor{}, false
	}
	p, ok := t.model.HighlightedRow().Data[keySerialPort].(serial.PortDescriptor)
	return p, ok
}

func (t *DeviceTable) SetWidth(width int) {
	t.model = t.model.WithTargetWidth(width)
}

func (t *DeviceTable) SetFocused(focused bool) {
	t.model = t.model.Focused(focused)
}

func (t *DeviceTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.model, cmd = t.model.Update(msg)
	return cmd
}

func (t *DeviceTable) View() string {
	return t.model.View()
}
