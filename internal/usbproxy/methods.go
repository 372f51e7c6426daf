package usbproxy

import "github.com/jprendes/libusb-proxy/internal/rpcwire"

// The method table in §4.4 shares a handful of small argument shapes.
// These helpers encode/decode exactly those shapes so the server dispatcher
// and the client adapter never hand-roll field order at the call site.

// DeviceIDArgs is the argument payload for every device_id-only method
// (device_descriptor, get_configuration, reset_device, open_device, ...).
type DeviceIDArgs struct {
	DeviceID uint32
}

func EncodeDeviceIDArgs(a DeviceIDArgs) []byte {
	w := rpcwire.NewWriter()
	w.WriteUint32(a.DeviceID)
	return w.Bytes()
}

func DecodeDeviceIDArgs(payload []byte) (DeviceIDArgs, error) {
	r := rpcwire.NewReader(payload)
	id, err := r.ReadUint32()
	if err != nil {
		return DeviceIDArgs{}, err
	}
	if err := r.Finish(); err != nil {
		return DeviceIDArgs{}, err
	}
	return DeviceIDArgs{DeviceID: id}, nil
}

// DeviceIfaceArgs is the argument payload for device_id+iface methods
// (claim_interface, release_interface, kernel_driver_active, ...).
type DeviceIfaceArgs struct {
	DeviceID uint32
	Iface    uint8
}

func EncodeDeviceIfaceArgs(a DeviceIfaceArgs) []byte {
	w := rpcwire.NewWriter()
	w.WriteUint32(a.DeviceID)
	w.WriteUint8(a.Iface)
	return w.Bytes()
}

func DecodeDeviceIfaceArgs(payload []byte) (DeviceIfaceArgs, error) {
	r := rpcwire.NewReader(payload)
	a := DeviceIfaceArgs{}
	var err error
	if a.DeviceID, err = r.ReadUint32(); err != nil {
		return DeviceIfaceArgs{}, err
	}
	if a.Iface, err = r.ReadUint8(); err != nil {
		return DeviceIfaceArgs{}, err
	}
	if err := r.Finish(); err != nil {
		return DeviceIfaceArgs{}, err
	}
	return a, nil
}

// ConfigDescriptorArgs is config_descriptor's argument payload.
type ConfigDescriptorArgs struct {
	DeviceID uint32
	Index    uint8
}

func EncodeConfigDescriptorArgs(a ConfigDescriptorArgs) []byte {
	w := rpcwire.NewWriter()
	w.WriteUint32(a.DeviceID)
	w.WriteUint8(a.Index)
	return w.Bytes()
}

func DecodeConfigDescriptorArgs(payload []byte) (ConfigDescriptorArgs, error) {
	r := rpcwire.NewReader(payload)
	a := ConfigDescriptorArgs{}
	var err error
	if a.DeviceID, err = r.ReadUint32(); err != nil {
		return ConfigDescriptorArgs{}, err
	}
	if a.Index, err = r.ReadUint8(); err != nil {
		return ConfigDescriptorArgs{}, err
	}
	if err := r.Finish(); err != nil {
		return ConfigDescriptorArgs{}, err
	}
	return a, nil
}

// SetConfigurationArgs is set_configuration's argument payload.
type SetConfigurationArgs struct {
	DeviceID uint32
	Value    int32
}

func EncodeSetConfigurationArgs(a SetConfigurationArgs) []byte {
	w := rpcwire.NewWriter()
	w.WriteUint32(a.DeviceID)
	w.WriteInt32(a.Value)
	return w.Bytes()
}

func DecodeSetConfigurationArgs(payload []byte) (SetConfigurationArgs, error) {
	r := rpcwire.NewReader(payload)
	a := SetConfigurationArgs{}
	var err error
	if a.DeviceID, err = r.ReadUint32(); err != nil {
		return SetConfigurationArgs{}, err
	}
	if a.Value, err = r.ReadInt32(); err != nil {
		return SetConfigurationArgs{}, err
	}
	if err := r.Finish(); err != nil {
		return SetConfigurationArgs{}, err
	}
	return a, nil
}

// SetInterfaceAltSettingArgs is set_interface_altsetting's argument payload.
type SetInterfaceAltSettingArgs struct {
	DeviceID uint32
	Iface    uint8
	Alt      uint8
}

func EncodeSetInterfaceAltSettingArgs(a SetInterfaceAltSettingArgs) []byte {
	w := rpcwire.NewWriter()
	w.WriteUint32(a.DeviceID)
	w.WriteUint8(a.Iface)
	w.WriteUint8(a.Alt)
	return w.Bytes()
}

func DecodeSetInterfaceAltSettingArgs(payload []byte) (SetInterfaceAltSettingArgs, error) {
	r := rpcwire.NewReader(payload)
	a := SetInterfaceAltSettingArgs{}
	var err error
	if a.DeviceID, err = r.ReadUint32(); err != nil {
		return SetInterfaceAltSettingArgs{}, err
	}
	if a.Iface, err = r.ReadUint8(); err != nil {
		return SetInterfaceAltSettingArgs{}, err
	}
	if a.Alt, err = r.ReadUint8(); err != nil {
		return SetInterfaceAltSettingArgs{}, err
	}
	if err := r.Finish(); err != nil {
		return SetInterfaceAltSettingArgs{}, err
	}
	return a, nil
}

// ClearHaltArgs is clear_halt's argument payload.
type ClearHaltArgs struct {
	DeviceID uint32
	Endpoint uint8
}

func EncodeClearHaltArgs(a ClearHaltArgs) []byte {
	w := rpcwire.NewWriter()
	w.WriteUint32(a.DeviceID)
	w.WriteUint8(a.Endpoint)
	return w.Bytes()
}

func DecodeClearHaltArgs(payload []byte) (ClearHaltArgs, error) {
	r := rpcwire.NewReader(payload)
	a := ClearHaltArgs{}
	var err error
	if a.DeviceID, err = r.ReadUint32(); err != nil {
		return ClearHaltArgs{}, err
	}
	if a.Endpoint, err = r.ReadUint8(); err != nil {
		return ClearHaltArgs{}, err
	}
	if err := r.Finish(); err != nil {
		return ClearHaltArgs{}, err
	}
	return a, nil
}

// EncodeBytesResult and DecodeBytesResult are shared by every method whose
// result is a raw byte blob (active_config_descriptor, config_descriptor).
func EncodeBytesResult(b []byte) []byte {
	w := rpcwire.NewWriter()
	w.WriteBytes(b)
	return w.Bytes()
}

func DecodeBytesResult(payload []byte) ([]byte, error) {
	r := rpcwire.NewReader(payload)
	b, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return b, nil
}

func EncodeUint8Result(v uint8) []byte {
	w := rpcwire.NewWriter()
	w.WriteUint8(v)
	return w.Bytes()
}

func DecodeUint8Result(payload []byte) (uint8, error) {
	r := rpcwire.NewReader(payload)
	v, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	if err := r.Finish(); err != nil {
		return 0, err
	}
	return v, nil
}

func EncodeBoolResult(v bool) []byte {
	w := rpcwire.NewWriter()
	w.WriteBool(v)
	return w.Bytes()
}

func DecodeBoolResult(payload []byte) (bool, error) {
	r := rpcwire.NewReader(payload)
	v, err := r.ReadBool()
	if err != nil {
		return false, err
	}
	if err := r.Finish(); err != nil {
		return false, err
	}
	return v, nil
}

// EncodeEmptyResult and DecodeEmptyResult are shared by every method whose
// result carries no fields (set_configuration, claim_interface, ...).
func EncodeEmptyResult() []byte { return nil }

func DecodeEmptyResult(payload []byte) error {
	if len(payload) != 0 {
		return rpcwire.NewReader(payload).Finish()
	}
	return nil
}

func EncodeCapabilitiesResult(c Capabilities) []byte {
	w := rpcwire.NewWriter()
	c.Encode(w)
	return w.Bytes()
}

func DecodeCapabilitiesResult(payload []byte) (Capabilities, error) {
	r := rpcwire.NewReader(payload)
	c, err := DecodeCapabilities(r)
	if err != nil {
		return Capabilities{}, err
	}
	if err := r.Finish(); err != nil {
		return Capabilities{}, err
	}
	return c, nil
}

func EncodeDeviceListResult(l DeviceList) []byte {
	w := rpcwire.NewWriter()
	l.Encode(w)
	return w.Bytes()
}

func DecodeDeviceListResult(payload []byte) (DeviceList, error) {
	r := rpcwire.NewReader(payload)
	l, err := DecodeDeviceList(r)
	if err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return l, nil
}

func EncodeDescriptorResult(d Descriptor) []byte {
	w := rpcwire.NewWriter()
	d.Encode(w)
	return w.Bytes()
}

func DecodeDescriptorResult(payload []byte) (Descriptor, error) {
	r := rpcwire.NewReader(payload)
	d, err := DecodeDescriptor(r)
	if err != nil {
		return Descriptor{}, err
	}
	if err := r.Finish(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func EncodeTransferRequestArgs(t TransferRequest) []byte {
	w := rpcwire.NewWriter()
	t.Encode(w)
	return w.Bytes()
}

func DecodeTransferRequestArgs(payload []byte) (TransferRequest, error) {
	r := rpcwire.NewReader(payload)
	t, err := DecodeTransferRequest(r)
	if err != nil {
		return TransferRequest{}, err
	}
	if err := r.Finish(); err != nil {
		return TransferRequest{}, err
	}
	return t, nil
}

func EncodeTransferResultResult(t TransferResult) []byte {
	w := rpcwire.NewWriter()
	t.Encode(w)
	return w.Bytes()
}

func DecodeTransferResultResult(payload []byte) (TransferResult, error) {
	r := rpcwire.NewReader(payload)
	t, err := DecodeTransferResult(r)
	if err != nil {
		return TransferResult{}, err
	}
	if err := r.Finish(); err != nil {
		return TransferResult{}, err
	}
	return t, nil
}

// Method keys, exactly as registered on the RPC endpoint.
const (
	MethodGetCapabilities         = "get_capabilities"
	MethodDevicesList             = "devices_list"
	MethodDeviceDescriptor        = "device_descriptor"
	MethodActiveConfigDescriptor  = "active_config_descriptor"
	MethodConfigDescriptor        = "config_descriptor"
	MethodGetConfiguration        = "get_configuration"
	MethodSetConfiguration        = "set_configuration"
	MethodClaimInterface          = "claim_interface"
	MethodReleaseInterface        = "release_interface"
	MethodSetInterfaceAltSetting  = "set_interface_altsetting"
	MethodClearHalt               = "clear_halt"
	MethodResetDevice             = "reset_device"
	MethodKernelDriverActive      = "kernel_driver_active"
	MethodDetachKernelDriver      = "detach_kernel_driver"
	MethodAttachKernelDriver      = "attach_kernel_driver"
	MethodOpenDevice              = "open_device"
	MethodCloseDevice             = "close_device"
	MethodSubmitTransfer          = "submit_transfer"
)
