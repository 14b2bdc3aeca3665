package sinks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"duskhaven/server/logging"
)

// Console renders events through a dedicated logrus logger so gameplay
// events share the formatting of the process logs.
type Console struct {
	logger *logrus.Logger
}

func NewConsole(w io.Writer, cfg logging.ConsoleConfig) *Console {
	logger := logrus.New()
	if w != nil {
		logger.SetOutput(w)
	}
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   cfg.UseColor,
		DisableColors: !cfg.UseColor,
		FullTimestamp: true,
	})
	return &Console{logger: logger}
}

func (s *Console) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	fields := logrus.Fields{
		"tick":  event.Tick,
		"actor": formatEntity(event.Actor),
	}
	if event.Category != "" {
		fields["category"] = event.Category
	}
	if len(event.Targets) > 0 {
		fields["targets"] = formatTargets(event.Targets)
	}
	if event.Payload != nil {
		fields["payload"] = fmt.Sprintf("%+v", event.Payload)
	}
	for k, v := range event.Extra {
		fields[k] = v
	}
	s.logger.WithFields(fields).Log(severityLevel(event.Severity), string(event.Type))
	return nil
}

func (s *Console) Close(context.Context) error {
	return nil
}

func severityLevel(sev logging.Severity) logrus.Level {
	switch sev {
	case logging.SeverityDebug:
		return logrus.DebugLevel
	case logging.SeverityInfo:
		return logrus.InfoLevel
	case logging.SeverityWarn:
		return logrus.WarnLevel
	case logging.SeverityError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatTargets(targets []logging.EntityRef) string {
	parts := make([]string, 0, len(targets))
	for _, target := range targets {
		parts = append(parts, formatEntity(target))
	}
	return strings.Join(parts, ",")
}
