package winkeyer

// SettingsSize is the length of the LoadSettings parameter block.
const SettingsSize = 15

// Settings is the LoadSettings parameter block. Each value is the same
// byte the matching individual command would carry; field order is the
// wire order.
type Settings struct {
	ModeRegister      byte `yaml:"modeRegister"`
	SpeedWPM          byte `yaml:"speedWpm"`
	SidetoneFrequency byte `yaml:"sidetoneFrequency"`
	Weight            byte `yaml:"weight"`
	LeadInTime        byte `yaml:"leadInTime"`
	TailTime          byte `yaml:"tailTime"`
	MinWPM            byte `yaml:"minWpm"`
	WPMRange          byte `yaml:"wpmRange"`
	X2Mode            byte `yaml:"x2Mode"`
	KeyCompensation   byte `yaml:"keyCompensation"`
	FarnsworthWPM     byte `yaml:"farnsworthWpm"`
	PaddleSetpoint    byte `yaml:"paddleSetpoint"`
	DitDahRatio       byte `yaml:"ditDahRatio"`
	PinConfig         byte `yaml:"pinConfig"`
	X1Mode            byte `yaml:"x1Mode"`
}

// Bytes returns the block in wire order.
func (s Settings) Bytes() [SettingsSize]byte {
	return [SettingsSize]byte{
		s.ModeRegister,
		s.SpeedWPM,
		s.SidetoneFrequency,
		s.Weight,
		s.LeadInTime,
		s.TailTime,
		s.MinWPM,
		s.WPMRange,
		s.X2Mode,
		s.KeyCompensation,
		s.FarnsworthWPM,
		s.PaddleSetpoint,
		s.DitDahRatio,
		s.PinConfig,
		s.X1Mode,
	}
}

func (s Settings) appendTo(dst []byte) []byte {
	block := s.Bytes()
	return append(dst, block[:]...)
}
