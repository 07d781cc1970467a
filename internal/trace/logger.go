// Package trace provides observers that report what the bridge engine does:
// a leveled text trace and a pcap tap.
package trace

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"firestige.xyz/nmbridge/internal/bridge"
	"firestige.xyz/nmbridge/internal/config"
	"firestige.xyz/nmbridge/internal/header"
	"firestige.xyz/nmbridge/internal/ring"
)

// payloadDumpLen bounds the payload bytes dumped per slot at trace level.
const payloadDumpLen = 64

// Logger is a bridge.Observer writing a leveled trace through logrus.
//
// At info level only passes that moved frames are reported. Debug adds one
// line per pass and per slot. Trace adds rings, head publication and payload
// dumps.
type Logger struct {
	log    *logrus.Logger
	layers bool
}

var _ bridge.Observer = (*Logger)(nil)

// NewLogger creates a Logger writing to w.
func NewLogger(w io.Writer, cfg config.TraceConfig) (*Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&formatter{pattern: cfg.Pattern, time: cfg.Time})
	return &Logger{log: l, layers: cfg.Layers}, nil
}

func (t *Logger) enabled(level logrus.Level) bool {
	return t.log.IsLevelEnabled(level)
}

func (t *Logger) PassStart(dir bridge.Direction) {
	if t.enabled(logrus.DebugLevel) {
		t.log.WithField("dir", dir.String()).Debugf("move from %s to %s", dir.Source(), dir.Sink())
	}
}

func (t *Logger) RingStart(dir bridge.Direction, dst ring.Ring) {
	if t.enabled(logrus.TraceLevel) {
		t.log.WithFields(logrus.Fields{
			"dir":   dir.String(),
			"ring":  dst.Index(),
			"avail": ring.Available(dst),
		}).Trace("tx ring")
	}
}

func (t *Logger) Slot(dir bridge.Direction, src ring.Slot, dst ring.Ring, sum header.Summary) {
	if !t.enabled(logrus.DebugLevel) {
		return
	}
	fields := logrus.Fields{
		"dir":  dir.String(),
		"ring": dst.Index(),
		"len":  sum.Len,
	}
	if sum.Opaque() {
		fields["mac"] = "opaque"
	} else {
		fields["mac"] = sum.Ethernet.String()
	}
	if sum.IPv4 != nil {
		fields["ipv4"] = sum.IPv4.String()
	}
	if t.layers {
		fields["layers"] = layerNames(src.Payload())
	}
	if t.enabled(logrus.TraceLevel) {
		p := sum.Payload
		if len(p) > payloadDumpLen {
			p = p[:payloadDumpLen]
		}
		fields["payload"] = hex.EncodeToString(p)
	}
	t.log.WithFields(fields).Debug("copy slot")
}

func (t *Logger) SourceDrained(dir bridge.Direction) {
	if t.enabled(logrus.TraceLevel) {
		t.log.WithField("dir", dir.String()).Trace("end of rx queue")
	}
}

func (t *Logger) HeadPublished(dir bridge.Direction, side bridge.Side, r ring.Ring) {
	if t.enabled(logrus.TraceLevel) {
		t.log.WithFields(logrus.Fields{
			"dir":  dir.String(),
			"side": side.String(),
			"ring": r.Index(),
			"cur":  r.Cur(),
		}).Trace("set head")
	}
}

func (t *Logger) PassEnd(dir bridge.Direction, res bridge.Result) {
	level := logrus.DebugLevel
	if res.Slots > 0 {
		level = logrus.InfoLevel
	}
	if t.enabled(level) {
		t.log.WithFields(logrus.Fields{
			"dir":   dir.String(),
			"slots": res.Slots,
			"bytes": res.Bytes,
			"stop":  res.Stop.String(),
		}).Log(level, "pass done")
	}
}
