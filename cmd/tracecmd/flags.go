package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/tracecmd/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

type cliFlags struct {
	fs *pflag.FlagSet

	startCollector string
	output         string
	overwrite      string
	analyze        string
	format         string
	video          string
	secure         bool
	certInstall    bool
	uplink         int
	downlink       int
	orientation    string
	deviceID       string

	descriptor     string
	configPath     string
	listCollectors bool
	version        bool
}

func newFlags(name string) *cliFlags {
	f := &cliFlags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	fs := f.fs

	fs.StringVar(&f.startCollector, "startcollector", "", "collector to start: rooted_android, vpn_android or ios")
	fs.StringVar(&f.output, "output", "", "output location of the trace or report")
	fs.StringVar(&f.overwrite, "overwrite", "no", "replace an existing output: yes or no")
	fs.StringVar(&f.analyze, "analyze", "", "trace directory to analyze")
	fs.StringVar(&f.format, "format", domain.FormatJSON, "report format: json or html")
	fs.StringVar(&f.video, "video", "", "video capture: yes, no, hd, sd or slow")
	fs.BoolVar(&f.secure, "secure", false, "collect secure traffic (vpn_android only)")
	fs.BoolVar(&f.certInstall, "certinstall", false, "install the secure collection certificate")
	fs.IntVar(&f.uplink, "uplink", 0, "uplink attenuation in kbps, 0-100 (vpn_android only)")
	fs.IntVar(&f.downlink, "downlink", 0, "downlink attenuation in kbps, 0-2000 (vpn_android only)")
	fs.StringVar(&f.orientation, "orientation", "", "device orientation: portrait or landscape")
	fs.StringVar(&f.deviceID, "deviceid", "", "serial number of the device to collect from")

	fs.StringVar(&f.descriptor, "descriptor", "", "YAML command descriptor; explicit flags override its fields")
	fs.StringVar(&f.configPath, "config", "", "path to config.yaml")
	fs.BoolVar(&f.listCollectors, "listcollectors", false, "list supported collectors and exit")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	return f
}

func (f *cliFlags) parse(args []string) error {
	return f.fs.Parse(args)
}

// command builds the descriptor from --descriptor, then applies every flag
// set on the command line.
func (f *cliFlags) command() (*domain.CommandDescriptor, error) {
	cmd := &domain.CommandDescriptor{}
	if f.descriptor != "" {
		loaded, err := loadDescriptor(f.descriptor)
		if err != nil {
			return nil, err
		}
		cmd = loaded
	} else {
		cmd.Format = f.format
		cmd.Overwrite = isYes(f.overwrite)
	}

	changed := f.fs.Changed
	if changed("startcollector") {
		cmd.StartCollector = f.startCollector
	}
	if changed("output") {
		cmd.Output = f.output
	}
	if changed("overwrite") {
		cmd.Overwrite = isYes(f.overwrite)
	}
	if changed("analyze") {
		cmd.Analyze = f.analyze
	}
	if changed("format") {
		cmd.Format = f.format
	}
	if changed("video") {
		cmd.Video = f.video
	}
	if changed("secure") {
		cmd.Secure = f.secure
	}
	if changed("certinstall") {
		cmd.CertInstall = f.certInstall
	}
	if changed("uplink") {
		cmd.Uplink = f.uplink
	}
	if changed("downlink") {
		cmd.Downlink = f.downlink
	}
	if changed("orientation") {
		cmd.Orientation = f.orientation
	}
	if changed("deviceid") {
		cmd.DeviceID = f.deviceID
	}
	return cmd, nil
}

func loadDescriptor(path string) (*domain.CommandDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	var cmd domain.CommandDescriptor
	if err := yaml.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	return &cmd, nil
}

// isYes maps the CLI literal "yes" to true; anything else is false
func isYes(v string) bool {
	return v == "yes"
}
