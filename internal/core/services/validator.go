package services

import (
	"github.com/tracecmd/backend/internal/core/ports"
	"github.com/tracecmd/backend/internal/domain"
)

// Validator checks a command descriptor against the collector, analysis,
// video, secure and attenuator rules. Rules run in a fixed order and the
// first violation is returned; nil means the command is accepted.
type Validator struct {
	files         ports.FileManager
	logger        ports.Logger
	lenientFormat bool
}

type ValidatorConfig struct {
	Files  ports.FileManager
	Logger ports.Logger
	// LenientFormat rejects an analysis only when its format, json when
	// unset, is neither json nor html. When false the historical check
	// applies, which rejects every analysis request.
	LenientFormat bool
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{
		files:         cfg.Files,
		logger:        cfg.Logger,
		lenientFormat: cfg.LenientFormat,
	}
}

// Validate returns the first violated rule's category, or nil when the
// command is accepted. An existing output is deleted only when the command
// asks for an analysis with Overwrite set.
func (v *Validator) Validate(cmd *domain.CommandDescriptor) *domain.ErrorCode {
	return v.validate(cmd, false)
}

// Check applies the same rules as Validate but never touches the output
// location; an existing output with Overwrite set is accepted as is.
func (v *Validator) Check(cmd *domain.CommandDescriptor) *domain.ErrorCode {
	return v.validate(cmd, true)
}

func (v *Validator) validate(cmd *domain.CommandDescriptor, dryRun bool) *domain.ErrorCode {
	if cmd.StartCollector != "" {
		if !domain.IsSupportedCollector(cmd.StartCollector) {
			return domain.ErrUnsupportedCollector
		}
		if !cmd.HasOutput() {
			return domain.ErrOutputRequired
		}
	}

	if cmd.Analyze != "" {
		if code := v.validateAnalysis(cmd, dryRun); code != nil {
			return code
		}
	}

	if cmd.Video != "" && !isValidVideoMode(cmd.Video) {
		return domain.ErrInvalidVideoOption
	}

	if code := validateSecure(cmd); code != nil {
		return code
	}
	if code := validateUplink(cmd); code != nil {
		return code
	}
	if code := validateDownlink(cmd); code != nil {
		return code
	}
	return nil
}

func (v *Validator) validateAnalysis(cmd *domain.CommandDescriptor, dryRun bool) *domain.ErrorCode {
	if !v.formatSupported(cmd.GetFormat()) {
		return domain.ErrUnsupportedFormat
	}

	if !cmd.HasOutput() {
		return domain.ErrOutputRequired
	}

	exists, err := v.files.FileExist(cmd.Output)
	if err != nil {
		v.logger.Errorw("validator_output_check_failed", "output", cmd.Output, "error", err)
		return domain.ErrStorageFailure
	}
	if !exists {
		return nil
	}

	if !cmd.Overwrite {
		return domain.ErrFileExists
	}
	if dryRun {
		return nil
	}

	if err := v.files.DeleteFile(cmd.Output); err != nil {
		v.logger.Errorw("validator_output_delete_failed", "output", cmd.Output, "error", err)
		return domain.ErrStorageFailure
	}
	v.logger.Infow("validator_output_overwritten", "output", cmd.Output)
	return nil
}

func (v *Validator) formatSupported(format string) bool {
	if v.lenientFormat {
		return format == domain.FormatJSON || format == domain.FormatHTML
	}
	// Never true; kept as shipped until the product decides on the intended rule.
	return format == domain.FormatJSON && format == domain.FormatHTML
}

func isValidVideoMode(mode string) bool {
	for _, m := range domain.ValidVideoModes {
		if m == mode {
			return true
		}
	}
	return false
}

func isVPNCollector(cmd *domain.CommandDescriptor) bool {
	return cmd.StartCollector == string(domain.CollectorVPNAndroid)
}

func validateSecure(cmd *domain.CommandDescriptor) *domain.ErrorCode {
	if cmd.Secure && !isVPNCollector(cmd) {
		return domain.ErrSecureNotApplicable
	}
	if !cmd.Secure && cmd.CertInstall {
		return domain.ErrSecureEnableRequired
	}
	return nil
}

func validateUplink(cmd *domain.CommandDescriptor) *domain.ErrorCode {
	if cmd.Uplink != 0 && !isVPNCollector(cmd) {
		return domain.ErrAttenuatorNotApplicable
	}
	if !IsNumberInRange(cmd.Uplink, 0, domain.MaxUplink) {
		return domain.ErrInvalidUplink
	}
	return nil
}

func validateDownlink(cmd *domain.CommandDescriptor) *domain.ErrorCode {
	if cmd.Downlink != 0 && !isVPNCollector(cmd) {
		return domain.ErrAttenuatorNotApplicable
	}
	if !IsNumberInRange(cmd.Downlink, 0, domain.MaxDownlink) {
		return domain.ErrInvalidDownlink
	}
	return nil
}

// IsNumberInRange reports whether from <= n <= to
func IsNumberInRange(n, from, to int) bool {
	return n >= from && n <= to
}
