package host

import (
	"github.com/allbin/devlink/internal/pubsub"
	"github.com/allbin/devlink/usb"
)

// Events are the streams the host pushes to subscribers. Delivery is
// at-most-once with no replay: a subscriber sees only what is published
// after it subscribed, and a full subscriber queue drops values.
type Events struct {
	SerialData     *pubsub.Topic[[]byte]
	SerialError    *pubsub.Topic[string]
	UsbDevicesList *pubsub.Topic[[]usb.Descriptor]
	UsbConnected   *pubsub.Topic[string]
}

// NewEvents creates the topics with the default per-subscriber queue.
func NewEvents() *Events {
	return &Events{
		SerialData:     pubsub.NewTopic[[]byte](pubsub.DefaultBuffer),
		SerialError:    pubsub.NewTopic[string](pubsub.DefaultBuffer),
		UsbDevicesList: pubsub.NewTopic[[]usb.Descriptor](pubsub.DefaultBuffer),
		UsbConnected:   pubsub.NewTopic[string](pubsub.DefaultBuffer),
	}
}

// Close detaches every subscriber.
func (e *Events) Close() {
	e.SerialData.Close()
	e.SerialError.Close()
	e.UsbDevicesList.Close()
	e.UsbConnected.Close()
}
