package tui

const (
	// Input Dimensions
	InputWidth = 50

	// Layout Offsets and Padding
	DefaultPaddingX = 1
	DefaultPaddingY = 0
	HeaderHeight    = 7
	MinListHeight   = 8

	// Units
	Megabyte = 1024.0 * 1024.0

	// Channel Buffers
	EventChannelBuffer = 100

	// Number of samples kept for the throughput graph
	SpeedHistoryLen = 120
)
