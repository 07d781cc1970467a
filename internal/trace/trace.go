package trace

import (
	"io"
	"os"

	"go.uber.org/multierr"

	"firestige.xyz/nmbridge/internal/bridge"
	"firestige.xyz/nmbridge/internal/config"
	"firestige.xyz/nmbridge/internal/log"
)

// Open builds the observers cfg enables and a closer that flushes and
// releases their outputs. With nothing enabled the observer is a
// bridge.NopObserver.
func Open(cfg config.TraceConfig) (bridge.Observer, func() error, error) {
	var (
		observers []bridge.Observer
		closers   []io.Closer
	)
	closeAll := func() error {
		var err error
		for _, c := range closers {
			err = multierr.Append(err, c.Close())
		}
		return err
	}

	if cfg.Enabled {
		var w io.Writer = os.Stdout
		if cfg.Output == "file" {
			fw, err := log.NewFileWriter(cfg.File)
			if err != nil {
				return nil, nil, err
			}
			closers = append(closers, fw)
			w = fw
		}
		l, err := NewLogger(w, cfg)
		if err != nil {
			return nil, nil, multierr.Append(err, closeAll())
		}
		observers = append(observers, l)
	}

	if cfg.Pcap.Enabled {
		p, f, err := createPcapFile(cfg.Pcap.Path, cfg.Pcap.Snaplen)
		if err != nil {
			return nil, nil, multierr.Append(err, closeAll())
		}
		closers = append(closers, flushCloser{p, f})
		observers = append(observers, p)
	}

	return bridge.MultiObserver(observers...), closeAll, nil
}

type flushCloser struct {
	p *Pcap
	f io.Closer
}

func (c flushCloser) Close() error {
	return multierr.Combine(c.p.Flush(), c.f.Close())
}
