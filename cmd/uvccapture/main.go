// Command uvccapture discovers a UVC/UAC capture device, negotiates an
// audio and video stream against it, and drives both through the
// device state machine until interrupted.
package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/usbmedia/uvccapture/audiostream"
	"github.com/usbmedia/uvccapture/device"
	"github.com/usbmedia/uvccapture/devicestate"
	"github.com/usbmedia/uvccapture/eventloop"
	"github.com/usbmedia/uvccapture/native"
	"github.com/usbmedia/uvccapture/sinks"
)

var (
	flagWidth      int
	flagHeight     int
	flagBusFilter  int
	flagSampleRate uint32
	flagLogLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uvccapture",
		Short: "Capture synchronized audio and video from a UVC/UAC USB device",
		RunE:  runCapture,
	}
	cmd.Flags().IntVar(&flagWidth, "width", 1280, "target video width")
	cmd.Flags().IntVar(&flagHeight, "height", 720, "target video height")
	cmd.Flags().IntVar(&flagBusFilter, "bus", 0, "restrict discovery to this USB bus number (0 = all buses)")
	cmd.Flags().Uint32Var(&flagSampleRate, "sample-rate", 48000, "target audio sample rate in Hz")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func runCapture(cmd *cobra.Command, args []string) error {
	logger := newLogger(flagLogLevel)

	devices, err := device.FindDevices(func(d *device.Device) bool {
		if flagBusFilter != 0 && d.BusNumber != flagBusFilter {
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("uvccapture: enumerate devices: %w", err)
	}

	hub := devicestate.NewHub(logger)
	loop := eventloop.New(logger)
	defer loop.Stop()

	// Every call that mutates hub state or touches the device runs on
	// the loop goroutine, so the UI-thread discovery code above, the
	// loop below, and the signal-driven shutdown never race on the
	// same Hub/Streamer.
	runOnLoop := func(fn func()) {
		loop.Call(context.Background(), func(ctx context.Context) (any, error) {
			fn()
			return nil, nil
		})
	}

	var target *device.Device
	runOnLoop(func() {
		for _, d := range devices {
			hub.OnAttach(d, true)
			if hub.Current().Kind == devicestate.PermissionGranted {
				target = d
				return
			}
		}
	})
	if target == nil {
		return fmt.Errorf("uvccapture: no UVC/UAC device found")
	}
	logger.Info("uvccapture: selected device", "bus", target.BusNumber, "device", target.DeviceNumber)

	var connected bool
	opened := false
	runOnLoop(func() {
		connected = hub.OnConnect(func() error {
			if opened {
				return nil
			}
			opened = true
			return target.Open()
		}, logger)
	})
	if !connected {
		return fmt.Errorf("uvccapture: failed to connect to device")
	}

	runOnLoop(func() {
		if status, err := target.GetDeviceStatus(); err == nil {
			logger.Debug("uvccapture: device status", "selfPowered", status.SelfPowered, "remoteWakeup", status.RemoteWakeup)
		}
		if slow, err := target.IsLowSpeed(); err == nil && slow {
			logger.Warn("uvccapture: device negotiated low-speed USB, streaming is unlikely to work")
		}
	})

	sink := &sinks.NullSink{}
	params := audiostream.Params{
		SampleRate:             flagSampleRate,
		Channels:               2,
		BitsPerSample:          16,
		FramesPerBurst:         64,
		BufferCapacityInFrames: 2048,
	}
	audioFacade := native.NewAudioFacade(target, sink, params, logger)
	videoFacade := native.NewVideoFacade(target, newDiscardSurface(flagWidth, flagHeight), logger)

	runOnLoop(func() {
		hub.OnStreamStart(
			func() (bool, string) {
				if ok, msg := audioFacade.Connect(); !ok {
					return false, msg
				}
				return audioFacade.Start()
			},
			func() (bool, string) {
				if ok, msg := videoFacade.Connect(flagWidth, flagHeight); !ok {
					return false, msg
				}
				return videoFacade.Start()
			},
		)
	})

	state := hub.Current()
	logger.Info("uvccapture: stream state",
		"kind", state.Kind.String(), "audioOK", state.AudioOK, "audioMsg", state.AudioMsg,
		"videoOK", state.VideoOK, "videoMsg", state.VideoMsg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	runOnLoop(func() {
		hub.OnStreamStopRequest()
		hub.OnStreamStopped(
			func() { audioFacade.Stop(); audioFacade.Disconnect() },
			func() { videoFacade.Stop(); videoFacade.Disconnect() },
		)
		hub.OnDetach(target, func() { target.Close() })
	})
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("app", "uvccapture")
}

// discardSurface satisfies videostream.Surface by decoding frames into
// a throwaway buffer. A real build wires a host-provided surface
// (shared texture, SDL surface, etc.) into native.NewVideoFacade
// instead.
type discardSurface struct {
	buf *image.RGBA
}

func newDiscardSurface(width, height int) *discardSurface {
	return &discardSurface{buf: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *discardSurface) Lock() (*image.RGBA, error) { return s.buf, nil }
func (s *discardSurface) Unlock()                    {}
func (s *discardSurface) Post()                      {}
