package device

import (
	"fmt"
	"io/ioutil"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/usbmedia/uvccapture/usbproto"
)

const sysfsDeviceDir = "/sys/bus/usb/devices"

func readSysfsAttrInt(devName, attrName string) (int, error) {
	fileName := fmt.Sprintf("%s/%s/%s", sysfsDeviceDir, devName, attrName)
	data, err := ioutil.ReadFile(fileName)
	if err != nil {
		return 0, err
	}
	strData := strings.Trim(string(data), "\n")
	value, err := strconv.ParseInt(strData, 10, 64)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

func openSysfsAttr(devName, attrName string) (*os.File, error) {
	fileName := fmt.Sprintf("%s/%s/%s", sysfsDeviceDir, devName, attrName)
	return os.Open(fileName)
}

func getDeviceAddress(devName string) (int, int, error) {
	busNum, err := readSysfsAttrInt(devName, "busnum")
	if err != nil {
		return 0, 0, err
	}
	devNum, err := readSysfsAttrInt(devName, "devnum")
	if err != nil {
		return 0, 0, err
	}
	return busNum, devNum, nil
}

// parseDescriptor reads the sysfs "descriptors" attribute, which holds
// the device's raw device+configuration descriptor blob exactly as
// returned by a GetDescriptor(Configuration) control request. Only the
// leading device descriptor record is decoded here; the remainder is
// handed back raw since it mixes standard and class-specific (UAC/UVC)
// records that the typed registry in usbproto cannot walk safely.
func parseDescriptor(devName string) (*usbproto.DeviceDescriptor, []byte, error) {
	f, err := openSysfsAttr(devName, "descriptors")
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	raw, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) < 2 {
		return nil, nil, fmt.Errorf("device: descriptor blob too short (%d bytes)", len(raw))
	}
	devLen := int(raw[0])
	if devLen < 2 || devLen > len(raw) {
		return nil, nil, fmt.Errorf("device: implausible device descriptor length %d", devLen)
	}
	parsed, err := usbproto.ParseDescriptor(raw[:devLen])
	if err != nil {
		return nil, nil, fmt.Errorf("device: parse device descriptor: %w", err)
	}
	dd, ok := parsed.(*usbproto.DeviceDescriptor)
	if !ok {
		return nil, nil, fmt.Errorf("device: descriptor blob did not start with a device descriptor")
	}
	return dd, raw, nil
}

// EnumerateDevices lists every USB device node under sysfs, skipping
// root hubs ("usbN") and interface association entries ("N-N:1.0").
func EnumerateDevices() ([]*Device, error) {
	dirs, err := ioutil.ReadDir(sysfsDeviceDir)
	if err != nil {
		return nil, err
	}

	res := make([]*Device, 0, 10)
	for _, dir := range dirs {
		name := dir.Name()
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		dd, raw, err := parseDescriptor(name)
		if err != nil {
			slog.Debug("device: skipping sysfs entry with unreadable descriptors", "name", name, "err", err)
			continue
		}
		busNum, devNum, err := getDeviceAddress(name)
		if err != nil {
			slog.Debug("device: skipping sysfs entry with unreadable address", "name", name, "err", err)
			continue
		}
		res = append(res, &Device{
			BusNumber:           busNum,
			DeviceNumber:        devNum,
			DeviceDescriptor:    dd,
			RawConfigDescriptor: raw,
		})
	}
	return res, nil
}

// FindDevices returns every enumerated device for which filter returns
// true.
func FindDevices(filter func(device *Device) bool) ([]*Device, error) {
	allDevices, err := EnumerateDevices()
	if err != nil {
		return nil, err
	}
	res := make([]*Device, 0, len(allDevices))
	for _, dev := range allDevices {
		if filter(dev) {
			res = append(res, dev)
		}
	}
	return res, nil
}
