package dimmer

// Sink is the hardware the dimmer writes to. A single Sink is shared by every
// channel of a fixture and by the fixture's fan output.
//
// Duty ranges are fixed per backend: HardwarePWM takes 0..HardwareMaxDuty,
// SoftwarePWM takes 0..the range set with SetSoftwareRange. Callers clamp
// before writing.
type Sink interface {
	HardwarePWM(line, hz int, duty uint32) error
	SoftwarePWM(line int, duty uint32) error
	SetSoftwareRange(line int, rng uint32) error
	SetSoftwareFrequency(line, hz int) error
	WritePin(pin int, high bool) error
}
