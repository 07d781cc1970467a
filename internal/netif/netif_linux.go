//go:build linux

package netif

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"

	"firestige.xyz/nmbridge/internal/core"
)

// Prepare applies opts to ifname. Only a missing interface is an error; every
// other failure is logged and skipped.
func Prepare(ifname string, opts Options) error {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("%w: netlink.LinkByName(%s): %v", core.ErrEndpointOpen, ifname, err)
	}
	attrs := link.Attrs()
	logger := slog.With("ifname", ifname, "ifindex", attrs.Index)

	if opts.LinkUp && attrs.Flags&net.FlagUp == 0 {
		if err := netlink.LinkSetUp(link); err != nil {
			logger.Warn("netlink.LinkSetUp failed", "error", err)
		} else {
			logger.Info("brought up the interface")
		}
	}

	if opts.Promisc && attrs.Promisc == 0 {
		if err := netlink.SetPromiscOn(link); err != nil {
			logger.Warn("netlink.SetPromiscOn failed", "error", err)
		} else {
			logger.Info("enabled promiscuous mode")
		}
	}

	if opts.DisableOffloads {
		disableOffloads(ifname, logger)
	}
	return nil
}

func disableOffloads(ifname string, logger *slog.Logger) {
	etht, err := ethtool.NewEthtool()
	if err != nil {
		logger.Warn("ethtool.NewEthtool failed", "error", err)
		return
	}
	defer etht.Close()

	if drv, err := etht.DriverName(ifname); err == nil {
		logger = logger.With("driver", drv)
	}

	features, err := etht.Features(ifname)
	if err != nil {
		logger.Warn("ethtool.Features failed", "error", err)
		return
	}
	change := pendingChanges(features)
	if len(change) == 0 {
		logger.Debug("offloads already disabled")
		return
	}
	if err := etht.Change(ifname, change); err != nil {
		logger.Warn("ethtool.Change failed", "features", change, "error", err)
		return
	}
	logger.Info("disabled offloads", "features", change)
}
