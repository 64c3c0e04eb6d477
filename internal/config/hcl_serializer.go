package config

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Encode renders cfg as HCL. Empty optional settings are omitted.
func Encode(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("interface", cty.StringVal(cfg.Interface))
	if cfg.Namespace != "" {
		body.SetAttributeValue("namespace", cty.StringVal(cfg.Namespace))
	}
	setInt(body, "high_watermark", cfg.HighWatermark)
	setInt(body, "required_count", cfg.RequiredCount)

	setString(body, "poll_interval", cfg.PollInterval)
	setString(body, "initial_delay", cfg.InitialDelay)
	setString(body, "bounce_interval", cfg.BounceInterval)
	setString(body, "settle_delay", cfg.SettleDelay)
	setString(body, "up_retry_backoff", cfg.UpRetryBackoff)

	if cfg.Logging != nil {
		body.AppendNewline()
		serializeLogging(body, cfg.Logging)
	}
	if cfg.Metrics != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("metrics", nil).Body()
		b.SetAttributeValue("listen", cty.StringVal(cfg.Metrics.Listen))
	}

	return f.Bytes()
}

func serializeLogging(body *hclwrite.Body, l *LoggingConfig) {
	b := body.AppendNewBlock("logging", nil).Body()
	setString(b, "level", l.Level)
	if l.JSON {
		b.SetAttributeValue("json", cty.BoolVal(true))
	}

	if sl := l.Syslog; sl != nil {
		s := b.AppendNewBlock("syslog", nil).Body()
		s.SetAttributeValue("host", cty.StringVal(sl.Host))
		if sl.Port != 0 {
			s.SetAttributeValue("port", cty.NumberIntVal(int64(sl.Port)))
		}
		setString(s, "protocol", sl.Protocol)
		setString(s, "tag", sl.Tag)
		if sl.Facility != 0 {
			s.SetAttributeValue("facility", cty.NumberIntVal(int64(sl.Facility)))
		}
	}
}

func setString(body *hclwrite.Body, name, value string) {
	if value != "" {
		body.SetAttributeValue(name, cty.StringVal(value))
	}
}

func setInt(body *hclwrite.Body, name string, value *int) {
	if value != nil {
		body.SetAttributeValue(name, cty.NumberIntVal(int64(*value)))
	}
}
