package domain

// CollectorKind names a trace-capture driver variant
type CollectorKind string

const (
	CollectorRootedAndroid CollectorKind = "rooted_android"
	CollectorVPNAndroid    CollectorKind = "vpn_android"
	CollectorIOS           CollectorKind = "ios"
)

// SupportedCollectors lists the collector kinds a descriptor may request, in display order
var SupportedCollectors = []CollectorKind{
	CollectorRootedAndroid,
	CollectorVPNAndroid,
	CollectorIOS,
}

// IsSupportedCollector reports whether name is one of the supported collector kinds
func IsSupportedCollector(name string) bool {
	for _, k := range SupportedCollectors {
		if string(k) == name {
			return true
		}
	}
	return false
}

// ActionType is the action a descriptor asks for
type ActionType string

const (
	ActionNone           ActionType = "none"
	ActionStartCollector ActionType = "start_collector"
	ActionAnalyze        ActionType = "analyze"
)

// Report formats
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// Video capture modes
const (
	VideoYes  = "yes"
	VideoNo   = "no"
	VideoHD   = "hd"
	VideoSD   = "sd"
	VideoSlow = "slow"
)

// ValidVideoModes are the accepted non-empty values of CommandDescriptor.Video
var ValidVideoModes = []string{VideoYes, VideoNo, VideoHD, VideoSD, VideoSlow}

// Screen orientation passed to collectors
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Attenuator bounds (kbps)
const (
	MaxUplink   = 100
	MaxDownlink = 2000
)

// CommandDescriptor is a collect or analyze request as received from the
// command line or the HTTP API. Empty strings and zero numbers mean "not set".
type CommandDescriptor struct {
	StartCollector string `json:"start_collector,omitempty" yaml:"startcollector"`
	Analyze        string `json:"analyze,omitempty" yaml:"analyze"`
	Output         string `json:"output,omitempty" yaml:"output"`
	Overwrite      bool   `json:"overwrite" yaml:"overwrite"`
	Format         string `json:"format,omitempty" yaml:"format"`
	Video          string `json:"video,omitempty" yaml:"video"`
	Secure         bool   `json:"secure" yaml:"secure"`
	CertInstall    bool   `json:"cert_install" yaml:"certinstall"`
	Uplink         int    `json:"uplink" yaml:"uplink"`
	Downlink       int    `json:"downlink" yaml:"downlink"`
	Orientation    string `json:"orientation,omitempty" yaml:"orientation"`
	DeviceID       string `json:"device_id,omitempty" yaml:"deviceid"`
}

// Action derives the requested action. A collector start wins over analysis
// when both are set.
func (c *CommandDescriptor) Action() ActionType {
	switch {
	case c.StartCollector != "":
		return ActionStartCollector
	case c.Analyze != "":
		return ActionAnalyze
	default:
		return ActionNone
	}
}

// HasOutput reports whether an output path was given
func (c *CommandDescriptor) HasOutput() bool {
	return c.Output != ""
}

// GetOrientation returns the requested orientation, portrait by default
func (c *CommandDescriptor) GetOrientation() string {
	if c.Orientation == "" {
		return OrientationPortrait
	}
	return c.Orientation
}

// GetFormat returns the report format, json by default
func (c *CommandDescriptor) GetFormat() string {
	if c.Format == "" {
		return FormatJSON
	}
	return c.Format
}
