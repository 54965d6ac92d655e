//go:build linux

// Package lifecycle wires every other package into a runnable server:
// it brings components up in dependency order, installs signal
// handlers that poke the Reactor's self-pipe instead of touching any
// process-global state, and tears everything down in reverse.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/teavpn2/server/internal/auth"
	"github.com/teavpn2/server/internal/auth/filestore"
	"github.com/teavpn2/server/internal/auth/sqlitestore"
	"github.com/teavpn2/server/internal/config"
	"github.com/teavpn2/server/internal/logging"
	"github.com/teavpn2/server/internal/metrics"
	"github.com/teavpn2/server/internal/provision"
	"github.com/teavpn2/server/internal/reactor"
	"github.com/teavpn2/server/internal/tun"
)

// Controller owns every long-lived resource the server opens and
// guarantees they come down in reverse of the order they came up, even
// if bring-up fails partway through.
type Controller struct {
	cfg config.Configuration
	log logging.Logger

	authAdapter auth.Adapter
	provisioner provision.Provisioner
	tunDevice   *tun.Device
	tunPlane    *tun.Plane
	listener    reactor.Listener
	poller      *reactor.EpollPoller
	selfPipeRD  int
	selfPipeWR  int

	reg *metrics.Registry
	r   *reactor.Reactor

	sigCh chan os.Signal
}

// New validates cfg and constructs a Controller; it opens no resources yet.
func New(cfg config.Configuration, log logging.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg, log: log}, nil
}

// Run brings every component up, installs signal handlers, runs the
// Reactor until shutdown is requested, and tears down in reverse order.
// It returns the first fatal error encountered, if any.
func (c *Controller) Run() error {
	if err := c.bringUp(); err != nil {
		c.teardown()
		return err
	}
	defer c.teardown()

	c.installSignalHandlers()
	defer signal.Stop(c.sigCh)

	c.log.Info("reactor starting",
		slog.String("bind", fmt.Sprintf("%s:%d", c.cfg.Socket.BindAddr, c.cfg.Socket.BindPort)),
		slog.String("dev", c.cfg.Iface.Dev))
	return c.r.Run()
}

// bringUp follows the mandated order: auth adapter, self-pipe, TUN
// (open then provision), listen socket, then the Reactor itself.
func (c *Controller) bringUp() error {
	var err error
	c.authAdapter, err = c.openAuth()
	if err != nil {
		return fmt.Errorf("lifecycle: auth backend: %w", err)
	}

	c.selfPipeRD, c.selfPipeWR, err = reactor.NewSelfPipe()
	if err != nil {
		return fmt.Errorf("lifecycle: self-pipe: %w", err)
	}

	c.tunDevice, err = tun.Open(c.cfg.Iface.Dev)
	if err != nil {
		return fmt.Errorf("lifecycle: open tun: %w", err)
	}
	if err := c.tunDevice.SetNonblock(true); err != nil {
		return fmt.Errorf("lifecycle: tun set nonblock: %w", err)
	}
	c.tunPlane = tun.NewPlane(c.tunDevice, int(c.cfg.Iface.MTU), c.log)

	c.provisioner, err = provision.New(c.log)
	if err != nil {
		return fmt.Errorf("lifecycle: locate ip binary: %w", err)
	}
	info := provision.IfaceInfo{
		Dev:       c.cfg.Iface.Dev,
		MTU:       c.cfg.Iface.MTU,
		IPv4:      c.cfg.Iface.IPv4,
		Netmask:   c.cfg.Iface.IPv4Netmask,
		PublicIP:  c.cfg.Iface.PublicIP,
		GatewayIP: c.cfg.Iface.GatewayIP,
	}
	if err := c.provisioner.BringUp(info); err != nil {
		return fmt.Errorf("lifecycle: provision tun: %w", err)
	}

	listener, err := reactor.Listen(c.cfg.Socket.BindAddr, c.cfg.Socket.BindPort, c.cfg.Socket.Backlog)
	if err != nil {
		return fmt.Errorf("lifecycle: listen: %w", err)
	}
	c.listener = listener

	epoll, err := reactor.NewEpollPoller()
	if err != nil {
		return fmt.Errorf("lifecycle: epoll: %w", err)
	}
	c.poller = epoll

	c.reg = metrics.New()
	if c.cfg.Debug.Addr != "" {
		go func() {
			if err := c.reg.ServeDebugHTTP(c.cfg.Debug.Addr); err != nil {
				c.log.Warn("debug listener stopped", slog.String("err", err.Error()))
			}
		}()
	}

	c.r, err = reactor.New(reactor.Config{
		Listener:     listener,
		TUN:          c.tunPlane,
		Poller:       epoll,
		SelfPipeRead: c.selfPipeRD,
		DrainSelf:    reactor.DrainSelfPipe,
		MaxConn:      int(c.cfg.Socket.MaxConn),
		Authorizer:   c.authAdapter,
		Metrics:      c.reg,
		Log:          c.log,
	})
	if err != nil {
		return fmt.Errorf("lifecycle: reactor: %w", err)
	}
	return nil
}

func (c *Controller) openAuth() (auth.Adapter, error) {
	switch c.cfg.Auth.Backend {
	case "", "file":
		return filestore.Open(c.cfg.Sys.DataDir)
	case "sqlite":
		return sqlitestore.Open(c.cfg.Sys.DataDir + "/teavpn2.db")
	default:
		return nil, fmt.Errorf("lifecycle: unknown auth backend %q", c.cfg.Auth.Backend)
	}
}

// installSignalHandlers wakes the Reactor's self-pipe on INT/TERM/QUIT
// and reloads the file-backed credential store on HUP, all from a
// single goroutine reading off the standard signal channel — no
// process-wide state beyond the channel itself.
func (c *Controller) installSignalHandlers() {
	c.sigCh = make(chan os.Signal, 4)
	signal.Notify(c.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	go func() {
		for sig := range c.sigCh {
			switch sig {
			case syscall.SIGHUP:
				if store, ok := c.authAdapter.(*filestore.Store); ok {
					if err := store.Reload(); err != nil {
						c.log.Warn("credential reload failed", slog.String("err", err.Error()))
					} else {
						c.log.Info("credential store reloaded")
					}
				}
			default:
				c.log.Info("shutdown signal received", slog.String("signal", sig.String()))
				c.r.Stop()
				reactor.WakeSelfPipe(c.selfPipeWR)
				return
			}
		}
	}()
}

// teardown releases resources in exact reverse of bringUp, tolerating
// partially-initialized state (nil fields) from a failed bringUp.
func (c *Controller) teardown() {
	if c.poller != nil {
		c.poller.Close()
	}
	if c.listener != nil {
		c.listener.Close()
	}
	if c.provisioner != nil && c.tunDevice != nil {
		info := provision.IfaceInfo{
			Dev:       c.cfg.Iface.Dev,
			MTU:       c.cfg.Iface.MTU,
			IPv4:      c.cfg.Iface.IPv4,
			Netmask:   c.cfg.Iface.IPv4Netmask,
			PublicIP:  c.cfg.Iface.PublicIP,
			GatewayIP: c.cfg.Iface.GatewayIP,
		}
		if err := c.provisioner.BringDown(info); err != nil {
			c.log.Warn("tun teardown failed", slog.String("err", err.Error()))
		}
	}
	if c.tunPlane != nil {
		c.tunPlane.Close()
	}
	if c.selfPipeRD != 0 {
		syscall.Close(c.selfPipeRD)
	}
	if c.selfPipeWR != 0 {
		syscall.Close(c.selfPipeWR)
	}
	if c.authAdapter != nil {
		if err := c.authAdapter.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			c.log.Warn("auth adapter close failed", slog.String("err", err.Error()))
		}
	}
}
