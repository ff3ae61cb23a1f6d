package usbfs

const (
	nUSBDEVFS_MAXDRIVERNAME = 255
)
