package liveu

// Unit is one physical LiveU device registered on the account
type Unit struct {
	ID      string `json:"id"`
	RegCode string `json:"reg_code"`
}

// Inventory is the first inventory of the account
type Inventory struct {
	Units []Unit `json:"units"`
}

// Interface is one bonded network path reported by the unit. Port holds
// the raw identifier until ApplyCustomNames rewrites it to a display name.
type Interface struct {
	Port         string `json:"port"`
	Connected    bool   `json:"connected"`
	UplinkKbps   uint32 `json:"uplinkKbps"`
	DownlinkKbps uint32 `json:"downlinkKbps"`
	Technology   string `json:"technology"`
	Roaming      bool   `json:"isCurrentlyRoaming"`
}

// Battery is a snapshot of the internal battery
type Battery struct {
	Connected      bool  `json:"connected"`
	Percentage     uint8 `json:"percentage"`
	RunTimeToEmpty int   `json:"runTimeToEmpty"` // minutes
	Discharging    bool  `json:"discharging"`
	Charging       bool  `json:"charging"`
}

// Video is a snapshot of the encoder. No resolution means no camera is
// attached; a bitrate is only reported while a stream is running.
type Video struct {
	Resolution *string `json:"resolution,omitempty"`
	Bitrate    *uint32 `json:"bitrate,omitempty"`
}

// HasCamera reports whether a video source is attached
func (v Video) HasCamera() bool {
	return v.Resolution != nil
}

// IsIdle reports a camera attached but not encoding
func (v Video) IsIdle() bool {
	return v.Resolution != nil && v.Bitrate == nil
}

// IsStreaming reports an active encode
func (v Video) IsStreaming() bool {
	return v.Bitrate != nil
}
