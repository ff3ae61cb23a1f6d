package device

import (
	"github.com/usbmedia/uvccapture/usbproto"
)

// Standard request codes used by this device's control-transfer surface.
const (
	ReqGetStatus        = 0x00
	ReqGetDescriptor    = 0x06
	ReqGetConfiguration = 0x08
	ReqSetConfiguration = 0x09
)

// GetConfiguration returns the current device configuration value. A
// returned value of zero means the device is not configured.
func (d *Device) GetConfiguration() (int, error) {
	buff := make([]byte, 1)
	_, err := d.Ctrl(usbproto.RequestDirectionIn|usbproto.RequestTypeStandard|usbproto.RequestRecipientDevice,
		ReqGetConfiguration, 0, 0, buff)
	return int(buff[0]), err
}

// SetConfiguration selects the device configuration. configurationValue
// must be 0 or match a bConfigurationValue from a configuration
// descriptor; Open calls this with configuration 1 before claiming any
// streaming interface, since a freshly attached device may still be in
// the address state.
func (d *Device) SetConfiguration(configurationValue int) error {
	_, err := d.Ctrl(usbproto.RequestDirectionOut|usbproto.RequestTypeStandard|usbproto.RequestRecipientDevice,
		ReqSetConfiguration, uint16(configurationValue), 0, nil)
	return err
}

// GetDescriptor issues a standard GetDescriptor request. idx selects
// among descriptors of the same type (configuration, string);
// languageID applies only to string descriptors.
func (d *Device) GetDescriptor(descriptorType usbproto.DescriptorType, idx uint8, languageID uint16, buff []byte) (int, error) {
	return d.Ctrl(usbproto.RequestDirectionIn|usbproto.RequestTypeStandard|usbproto.RequestRecipientDevice,
		ReqGetDescriptor, (uint16(descriptorType)<<8)|uint16(idx), languageID, buff)
}

// DeviceStatus reports the bits returned by a standard GetStatus
// request against the device recipient.
type DeviceStatus struct {
	RemoteWakeup bool
	SelfPowered  bool
}

// GetDeviceStatus returns the device's self-powered/remote-wakeup bits,
// logged at connect time for diagnostics.
func (d *Device) GetDeviceStatus() (*DeviceStatus, error) {
	data := make([]byte, 2)
	_, err := d.Ctrl(usbproto.RequestDirectionIn|usbproto.RequestTypeStandard|usbproto.RequestRecipientDevice,
		ReqGetStatus, uint16(usbproto.StatusStandard), 0, data)
	if err != nil {
		return nil, err
	}
	return &DeviceStatus{
		RemoteWakeup: (data[0] & (1 << 1)) > 0,
		SelfPowered:  (data[0] & (1 << 0)) > 0,
	}, nil
}
