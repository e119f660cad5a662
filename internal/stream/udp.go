// Package stream sends preview frames to a driver station as JPEG datagrams.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DefaultPort is the destination port used when an address omits one.
const DefaultPort = 5802

// maxDatagram is the largest UDP payload over IPv4.
const maxDatagram = 65507

var (
	// ErrNotRunning is returned by Send before Start or after Stop.
	ErrNotRunning = errors.New("stream: server must be running to send an image")

	// ErrFrameTooLarge is returned when an encoded frame exceeds one datagram.
	ErrFrameTooLarge = errors.New("stream: encoded frame exceeds datagram size")
)

// UDPStreamer encodes each frame as a JPEG and sends it in a single
// datagram. The destination is re-resolved whenever the address changes.
// It is not safe for concurrent use.
type UDPStreamer struct {
	quality int
	running bool
	conn    net.PacketConn
	addr    string
	dst     net.Addr
	buf     bytes.Buffer
	log     *logrus.Entry
}

// NewUDPStreamer opens an unbound UDP socket for sending.
func NewUDPStreamer(quality int, log *logrus.Logger) (*UDPStreamer, error) {
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UDPStreamer{
		quality: clampQuality(quality),
		conn:    conn,
		log:     log.WithField("component", "stream"),
	}, nil
}

// Start enables sending. Starting a running streamer does nothing.
func (s *UDPStreamer) Start() {
	if !s.running {
		s.running = true
		s.log.Info("stream started")
	}
}

// Stop disables sending. Stopping a stopped streamer does nothing.
func (s *UDPStreamer) Stop() {
	if s.running {
		s.running = false
		s.log.Info("stream stopped")
	}
}

// Running reports whether frames are being sent.
func (s *UDPStreamer) Running() bool { return s.running }

// Quality returns the JPEG quality in 1..100.
func (s *UDPStreamer) Quality() int { return s.quality }

// SetQuality changes the JPEG quality, clamped to 1..100.
func (s *UDPStreamer) SetQuality(q int) { s.quality = clampQuality(q) }

// Send encodes img and sends it to addr (host or host:port). It blocks until
// the datagram is handed to the kernel.
func (s *UDPStreamer) Send(img image.Image, addr string) error {
	if !s.running {
		return ErrNotRunning
	}
	if err := s.resolve(addr); err != nil {
		return err
	}

	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if s.buf.Len() > maxDatagram {
		return fmt.Errorf("%d bytes at quality %d: %w", s.buf.Len(), s.quality, ErrFrameTooLarge)
	}
	if _, err := s.conn.WriteTo(s.buf.Bytes(), s.dst); err != nil {
		return fmt.Errorf("send frame to %s: %w", s.dst, err)
	}
	return nil
}

func (s *UDPStreamer) resolve(addr string) error {
	if addr == s.addr && s.dst != nil {
		return nil
	}
	hostPort := addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		hostPort = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	dst, err := net.ResolveUDPAddr("udp", hostPort)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", addr, err)
	}
	s.addr = addr
	s.dst = dst
	s.log.WithField("dst", dst.String()).Debug("stream destination changed")
	return nil
}

// Close stops the streamer and releases the socket.
func (s *UDPStreamer) Close() error {
	s.Stop()
	return s.conn.Close()
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
