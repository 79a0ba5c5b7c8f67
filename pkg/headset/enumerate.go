package headset

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sstallion/go-hid"
)

// ErrDeviceNotFound is returned when no usable headset interface is
// attached.
var ErrDeviceNotFound = errors.New("headset not found")

// Interface describes one enumerated HID interface of the headset.
type Interface struct {
	Path      string `json:"path"`
	VendorID  uint16 `json:"vendorID"`
	ProductID uint16 `json:"productID"`
	Product   string `json:"product"`
	UsagePage uint16 `json:"usagePage"`
	Usage     uint16 `json:"usage"`
	Number    int    `json:"interface"`
}

// Enumerate lists every HID interface matching vendorID and productID, in
// the order hidapi reports them.
func Enumerate(vendorID, productID uint16) ([]Interface, error) {
	if err := hid.Init(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to initialize hidapi")
	}

	var ifaces []Interface
	err := hid.Enumerate(vendorID, productID, func(info *hid.DeviceInfo) error {
		ifaces = append(ifaces, Interface{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Product:   info.ProductStr,
			UsagePage: info.UsagePage,
			Usage:     info.Usage,
			Number:    info.InterfaceNbr,
		})
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to enumerate %04x:%04x", vendorID, productID)
	}

	return ifaces, nil
}

// SelectInterface picks the vendor-specific control interface: the first one
// whose usage is greater than 1. The generic and consumer-control interfaces
// report usage 1 or 0 and do not answer the battery query.
func SelectInterface(ifaces []Interface) (Interface, bool) {
	for _, i := range ifaces {
		if i.Usage > 1 {
			return i, true
		}
	}
	return Interface{}, false
}

// Open finds and opens the headset's control interface.
func Open(vendorID, productID uint16) (Device, error) {
	ifaces, err := Enumerate(vendorID, productID)
	if err != nil {
		return nil, err
	}

	iface, ok := SelectInterface(ifaces)
	if !ok {
		return nil, pkgerrors.Wrapf(ErrDeviceNotFound, "%d interfaces matched %04x:%04x, none usable", len(ifaces), vendorID, productID)
	}

	logrus.WithFields(logrus.Fields{
		"path":      iface.Path,
		"product":   iface.Product,
		"usagePage": iface.UsagePage,
		"usage":     iface.Usage,
		"interface": iface.Number,
	}).Info("opening headset")

	dev, err := hid.OpenPath(iface.Path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open %s", iface.Path)
	}

	return dev, nil
}
