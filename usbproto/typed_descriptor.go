package usbproto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"reflect"
)

type (
	DescriptorType uint8

	Descriptor interface {
		Type() DescriptorType
	}

	DescriptorHeader struct {
		Length         uint8
		DescriptorType DescriptorType
	}

	// UnknownDescriptor is what ParseDescriptor/readDescriptor fall back to
	// for any DescriptorType not registered in descriptorMap: the bytes
	// past the two-byte header are kept verbatim rather than discarded, so
	// callers that only care about a handful of types never lose data they
	// didn't ask to decode.
	UnknownDescriptor struct {
		DescriptorHeader
		Data []byte
	}

	// DescriptorParser lets a registered type override the default
	// reflect-driven field walk with its own decode logic. Nothing in this
	// package currently implements it; it exists so a future class-specific
	// descriptor with variable-length or conditional fields can be added
	// without touching readDescriptor.
	DescriptorParser interface {
		ReadUSBDescriptor(hdr DescriptorHeader, i io.Reader) error
	}

	DescriptorFieldParser interface {
		ReadUSBDescriptorField(i io.Reader) (int, error)
	}
)

// Descriptor type codes from USB 2.0 §9.4.3, restricted to the types this
// package ever constructs. The standard registry (descriptorMap below) only
// decodes the five device/config/string/interface/endpoint types that
// device.ConfigurationDescriptorBytes and the sysfs bootstrap path ever
// request; everything past the standard configuration descriptor tree
// (BOS, capability, interface association, SuperSpeed companion records) is
// audio/video class territory and is decoded by the uac/uvc tokenizers
// instead, which walk the raw bLength-prefixed byte stream directly rather
// than going through this reflect-based registry.
const (
	DescriptorTypeDevice = DescriptorType(iota + 1)
	DescriptorTypeConfig
	DescriptorTypeString
	DescriptorTypeInterface
	DescriptorTypeEndpoint
)

var descriptorMap = map[DescriptorType]reflect.Type{
	DescriptorTypeDevice:    reflect.TypeOf(DeviceDescriptor{}),
	DescriptorTypeConfig:    reflect.TypeOf(ConfigurationDescriptor{}),
	DescriptorTypeInterface: reflect.TypeOf(InterfaceDescriptor{}),
	DescriptorTypeEndpoint:  reflect.TypeOf(EndpointDescriptor{}),
	DescriptorTypeString:    reflect.TypeOf(StringDescriptor{}),
}

func (h DescriptorHeader) Type() DescriptorType {
	return h.DescriptorType
}

func (t DescriptorType) String() string {
	if typ, exist := descriptorMap[t]; exist {
		return typ.String()
	}
	return fmt.Sprintf("Unknown(0x%.2X)", uint8(t))
}

type (
	// DeviceDescriptor is the 18-byte top-level descriptor every USB
	// device returns exactly once. device.Device.GetDeviceDescriptor
	// exposes the parsed form; devicestate classifies a device as UVC by
	// BDeviceClass, while device.FindDevices applies whatever filter its
	// caller passes.
	DeviceDescriptor struct {
		DescriptorHeader

		// BcdUSB is the supported USB spec version in 0xJJMN BCD form.
		BcdUSB uint16

		// BDeviceClass is 0 when each interface carries its own class
		// (the usual case for composite UVC+UAC devices), or a USB-IF
		// assigned class when the device declares one device-wide.
		BDeviceClass ClassCode

		// BDeviceSubClass qualifies BDeviceClass; zero when BDeviceClass
		// is zero.
		BDeviceSubClass SubClass

		// BDeviceProtocol qualifies BDeviceClass/BDeviceSubClass.
		BDeviceProtocol uint8

		// BMaxPacketSize0 is the control endpoint's max packet size,
		// expressed as an exponent of two (4 means 16 bytes).
		BMaxPacketSize0 uint8

		// IDVendor/IDProduct identify the device.
		IDVendor  uint16
		IDProduct uint16

		BcdDevice uint16

		// IManufacturer/IProduct/ISerialNumber index StringDescriptors;
		// 0 means the device omits that string.
		IManufacturer  uint8
		IProduct       uint8
		ISerialNumber  uint8
		BNumConfigurations uint8
	}

	// ConfigurationDescriptor is the header of a device's configuration:
	// it reports the byte length of everything that follows it
	// (interfaces, endpoints, and the class-specific UAC/UVC records this
	// package doesn't decode) so a caller can size its read buffer before
	// handing the blob to the raw class-descriptor tokenizer.
	ConfigurationDescriptor struct {
		DescriptorHeader

		// WTotalLength is the combined size of this descriptor plus
		// every interface/endpoint/class-specific descriptor returned
		// alongside it. device.ConfigurationDescriptorBytes reads this
		// field first to know how large a second read needs to be.
		WTotalLength uint16

		BNumInterfaces uint8

		// BConfigurationValue is the argument SetConfiguration expects
		// to select this configuration.
		BConfigurationValue uint8

		IConfiguration uint8

		// BmAttributes bit 6 is self-powered, bit 5 is remote wakeup.
		BmAttributes uint8

		// BMaxPower is bus current draw in 2mA units (high-speed) or
		// 8mA units (Gen X speed).
		BMaxPower uint8
	}

	// InterfaceDescriptor describes one alternate setting of one
	// interface within a configuration. UVC/UAC devices commonly expose
	// several alternate settings per streaming interface, each with a
	// different isochronous bandwidth; videostream/audiostream select
	// among them via device.Device.SetAltSetting.
	InterfaceDescriptor struct {
		DescriptorHeader

		BInterfaceNumber  uint8
		BAlternateSetting uint8
		BNumEndpoints     uint8

		// BInterfaceClass/BInterfaceSubClass/BInterfaceProtocol
		// identify this as an Audio or Video class interface (and
		// which subclass: Control, Streaming) per classcodes.go.
		BInterfaceClass    ClassCode
		BInterfaceSubClass SubClass
		BInterfaceProtocol uint8

		IInterface uint8
	}

	// EndpointDescriptor describes one endpoint's transfer type and
	// bandwidth. audiostream and videostream do not decode endpoints
	// through this type: uac reads the audio IN endpoint from the raw blob.
	EndpointDescriptor struct {
		DescriptorHeader

		// BEndpointAddress bits 3:0 are the endpoint number, bit 7 is
		// direction (1 = IN).
		BEndpointAddress uint8

		// BmAttributes bits 1:0 are transfer type (01 = isochronous,
		// 10 = bulk); bits 3:2 are isochronous sync type.
		BmAttributes uint8

		// WMaxPacketSize bounds the per-(micro)frame payload; the
		// isochronous transfer pool sizes its packet buffers from
		// this value.
		WMaxPacketSize uint16

		// BInterval is the polling/service interval exponent.
		BInterval uint8
	}

	// StringDescriptor holds either a LANGID table (index 0) or a
	// UTF-16LE string, depending on which index was requested.
	StringDescriptor struct {
		DescriptorHeader
		Data []byte
	}
)

// RegisterDescriptorType adds typ to the reflect-based registry so
// ParseDescriptor/ReadDescriptors decode it instead of falling back to
// UnknownDescriptor. No caller in this module needs it today since every
// class-specific descriptor is handled by the uac/uvc byte tokenizers, but
// it's kept exported as the documented extension point for a future
// standard (non-class-specific) descriptor type.
func RegisterDescriptorType(typ DescriptorType, desc Descriptor) {
	descriptorMap[typ] = reflect.TypeOf(desc)
}

func readDescriptorHeader(i io.Reader) (*DescriptorHeader, error) {
	header := DescriptorHeader{
		Length:         0,
		DescriptorType: 0,
	}
	err := binary.Read(i, binary.BigEndian, &header)
	return &header, err
}

func newDescriptor(hdr DescriptorHeader) (any, reflect.Value) {
	if descriptor, exist := descriptorMap[hdr.DescriptorType]; exist {
		x := reflect.New(descriptor)
		x.Elem().Field(0).Set(reflect.ValueOf(hdr))
		return x.Interface(), x
	}
	x := reflect.New(reflect.TypeOf(UnknownDescriptor{}))
	x.Elem().Field(0).Set(reflect.ValueOf(hdr))
	return x.Interface(), x
}

func readDescriptor(header *DescriptorHeader, i io.Reader) (Descriptor, error) {
	descriptor, ptrVal := newDescriptor(*header)
	if customReader, implements := descriptor.(DescriptorParser); implements {
		if err := customReader.ReadUSBDescriptor(*header, i); err != nil {
			return nil, err
		}
		return descriptor.(Descriptor), nil
	}
	elem := ptrVal.Elem()

loop:
	for elemIndex := 1; elemIndex < elem.NumField(); elemIndex++ {
		field := elem.Field(elemIndex)
		dest := field.Addr().Interface()

		switch field.Kind() {
		case reflect.Slice:
			switch field.Type() {
			case reflect.TypeOf([]uint8{}):
				excessiveData, err := ioutil.ReadAll(i)
				field.Set(reflect.ValueOf(excessiveData))
				if err != nil {
					return nil, err
				}
			default:
				if err := binary.Read(i, binary.LittleEndian, dest); err != nil {
					break loop
				}
			}
		default:
			if err := binary.Read(i, binary.LittleEndian, dest); err != nil {
				break loop
			}
		}
	}
	return descriptor.(Descriptor), nil
}

// ReadDescriptors streams consecutive descriptors out of i, invoking
// descriptorCB for each one until EOF.
func ReadDescriptors(i io.Reader, descriptorCB func(d Descriptor)) error {
	var err error
	var hdr *DescriptorHeader
	for hdr, err = readDescriptorHeader(i); err == nil; hdr, err = readDescriptorHeader(i) {
		descriptor, err := readDescriptor(hdr, i)
		if err != nil {
			return err
		}
		descriptorCB(descriptor)
	}
	if err == io.EOF {
		return nil
	}
	return err
}

// ParseDescriptor decodes a single descriptor from data, which must begin
// with a two-byte DescriptorHeader. device's sysfs enumeration uses this
// for the device descriptor; the configuration descriptor blob (which
// mixes standard and class-specific records) is handed whole to the
// uac/uvc tokenizers instead.
func ParseDescriptor(data []byte) (Descriptor, error) {
	reader := bytes.NewReader(data)
	hdr, err := readDescriptorHeader(reader)
	if err != nil {
		return nil, err
	}
	return readDescriptor(hdr, reader)
}
