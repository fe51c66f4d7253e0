package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/moffa90/go-r503/protocol"
)

// Sensor drives one R503 module over a Transport.
// It issues exactly one command at a time and caches the results later
// commands or the caller need (see Session).
//
// Sensor is NOT safe for concurrent use. The caller owns it exclusively, the
// same way it owns the Transport.
type Sensor struct {
	port    Transport
	config  Config
	log     *zap.Logger
	limiter *rate.Limiter

	// stale is set when the link may still hold bytes of an earlier reply
	stale bool

	// late is set when that reply may not have arrived yet
	late bool

	session sessionState
}

// New creates a new Sensor with the given transport and options.
//
// Example:
//
//	port, _ := transport.OpenSerial("/dev/ttyAMA0", 57600, logger)
//	s := sensor.New(port,
//	    sensor.WithReadTimeout(time.Second),
//	    sensor.WithLogger(logger),
//	)
func New(port Transport, opts ...Option) *Sensor {
	if port == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	limit := rate.Inf
	if cfg.PollInterval > 0 {
		limit = rate.Every(cfg.PollInterval)
	}

	return &Sensor{
		port:    port,
		config:  cfg,
		log:     cfg.Logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Open performs the password handshake and loads the system parameters.
// A module that rejects the password is not usable.
func (s *Sensor) Open(ctx context.Context) error {
	if err := s.VerifyPassword(ctx, s.config.Password); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	params, err := s.ReadSysParam(ctx)
	if err != nil {
		return fmt.Errorf("read system parameters: %w", err)
	}

	s.log.Info("sensor ready",
		zap.Int("capacity", params.Capacity),
		zap.Int("security_level", params.SecurityLevel),
		zap.Int("packet_size", params.PacketSize()),
		zap.Int("baud", params.BaudRate()),
	)
	return nil
}

// GenerateImage captures a finger image into the module's image buffer.
// Returns protocol.ErrNoFinger when nothing rests on the sensor.
func (s *Sensor) GenerateImage(ctx context.Context) error {
	cmd, err := protocol.BuildGenImgCmd(s.config.Address)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, protocol.CmdGenImg, cmd)
	return err
}

// GenCharFromImage extracts a feature template from the image buffer into
// character buffer bufferID (1..6).
func (s *Sensor) GenCharFromImage(ctx context.Context, bufferID int) error {
	cmd, err := protocol.BuildGenCharCmd(s.config.Address, bufferID)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, protocol.CmdGenChar, cmd)
	return err
}

// GenerateTemplate fuses the populated character buffers into one model.
// Returns protocol.ErrEnrollMismatch when the samples are not the same finger.
func (s *Sensor) GenerateTemplate(ctx context.Context) error {
	cmd, err := protocol.BuildRegModelCmd(s.config.Address)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, protocol.CmdRegModel, cmd)
	return err
}

// StoreTemplate persists the fused model at slot.
func (s *Sensor) StoreTemplate(ctx context.Context, slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	cmd, err := protocol.BuildStoreCmd(s.config.Address, 1, slot)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, protocol.CmdStore, cmd)
	return err
}

// DeleteTemplate frees slot. Deleting a free slot is not an error for the
// module; the cached template index drops the slot on success.
func (s *Sensor) DeleteTemplate(ctx context.Context, slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	cmd, err := protocol.BuildDeleteCharCmd(s.config.Address, slot, 1)
	if err != nil {
		return err
	}
	if _, err := s.execute(ctx, protocol.CmdDeleteChar, cmd); err != nil {
		return err
	}

	s.session.forget(slot)
	return nil
}

// EmptyLibrary deletes every stored template.
func (s *Sensor) EmptyLibrary(ctx context.Context) error {
	cmd, err := protocol.BuildEmptyCmd(s.config.Address)
	if err != nil {
		return err
	}
	if _, err := s.execute(ctx, protocol.CmdEmpty, cmd); err != nil {
		return err
	}

	s.session.forgetAll()
	return nil
}

// SearchFingerLib searches the whole library for the template in character
// buffer 1. On a match the result is also kept as the session's last match.
// Returns protocol.ErrNotFound when nothing matches.
func (s *Sensor) SearchFingerLib(ctx context.Context) (*protocol.SearchResult, error) {
	cmd, err := protocol.BuildSearchCmd(s.config.Address, 1, 0, s.capacity())
	if err != nil {
		return nil, err
	}

	resp, err := s.execute(ctx, protocol.CmdSearch, cmd)
	if err != nil {
		return nil, err
	}

	match, err := protocol.ParseSearchResponse(resp.Data)
	if err != nil {
		return nil, s.malformed(err)
	}

	s.session.fingerID = match.Slot
	s.session.confidence = match.Confidence
	return match, nil
}

// ReadTemplates reads the template index table and replaces the cached set
// of occupied slots. The cache is not touched unless every page was read.
func (s *Sensor) ReadTemplates(ctx context.Context) ([]int, error) {
	if s.session.params == nil {
		if _, err := s.ReadSysParam(ctx); err != nil {
			return nil, err
		}
	}

	pages := (s.capacity() + protocol.IndexPageSlots - 1) / protocol.IndexPageSlots
	if pages > protocol.MaxIndexPage+1 {
		pages = protocol.MaxIndexPage + 1
	}

	var slots []int
	for page := 0; page < pages; page++ {
		cmd, err := protocol.BuildReadIndexTableCmd(s.config.Address, page)
		if err != nil {
			return nil, err
		}

		resp, err := s.execute(ctx, protocol.CmdReadIndexTable, cmd)
		if err != nil {
			return nil, fmt.Errorf("index page %d: %w", page, err)
		}

		occupied, err := protocol.ParseIndexTableResponse(page, resp.Data)
		if err != nil {
			return nil, fmt.Errorf("index page %d: %w", page, s.malformed(err))
		}
		slots = append(slots, occupied...)
	}

	s.session.setTemplates(slots)
	return s.session.templateList(), nil
}

// TemplateCount returns the number of stored templates as counted by the module.
func (s *Sensor) TemplateCount(ctx context.Context) (int, error) {
	cmd, err := protocol.BuildTemplateNumCmd(s.config.Address)
	if err != nil {
		return 0, err
	}

	resp, err := s.execute(ctx, protocol.CmdTemplateNum, cmd)
	if err != nil {
		return 0, err
	}
	n, err := protocol.ParseTemplateCountResponse(resp.Data)
	if err != nil {
		return 0, s.malformed(err)
	}
	return n, nil
}

// SetSysParam writes one system register, e.g. protocol.ParamSecurityLevel.
// The session is not updated; call ReadSysParam to confirm the new value.
func (s *Sensor) SetSysParam(ctx context.Context, param int, value int) error {
	cmd, err := protocol.BuildSetSysParaCmd(s.config.Address, param, value)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, protocol.CmdSetSysPara, cmd)
	return err
}

// ReadSysParam reads the system parameters from the module and refreshes the
// cached security level and library capacity.
func (s *Sensor) ReadSysParam(ctx context.Context) (*protocol.SysParams, error) {
	cmd, err := protocol.BuildReadSysParaCmd(s.config.Address)
	if err != nil {
		return nil, err
	}

	resp, err := s.execute(ctx, protocol.CmdReadSysPara, cmd)
	if err != nil {
		return nil, err
	}

	params, err := protocol.ParseSysParamsResponse(resp.Data)
	if err != nil {
		return nil, s.malformed(err)
	}

	s.session.params = params
	s.session.securityLevel = params.SecurityLevel
	return params, nil
}

// LedCtrl starts an aura LED pattern. The module acknowledges the command but
// gives no feedback on what the LED actually shows.
func (s *Sensor) LedCtrl(ctx context.Context, pattern protocol.LedPattern) error {
	cmd, err := protocol.BuildAuraLedConfigCmd(s.config.Address, pattern)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, protocol.CmdAuraLedConfig, cmd)
	return err
}

// VerifyPassword performs the password handshake.
func (s *Sensor) VerifyPassword(ctx context.Context, password uint32) error {
	cmd, err := protocol.BuildVerifyPasswordCmd(s.config.Address, password)
	if err != nil {
		return err
	}
	_, err = s.execute(ctx, protocol.CmdVerifyPassword, cmd)
	return err
}

// Capacity returns the library size reported by the module, or the R503
// default before system parameters have been read.
func (s *Sensor) Capacity() int {
	return s.capacity()
}

func (s *Sensor) capacity() int {
	if s.session.params != nil && s.session.params.Capacity > 0 {
		return s.session.params.Capacity
	}
	return protocol.DefaultCapacity
}

func (s *Sensor) checkSlot(slot int) error {
	if slot < 1 || slot >= s.capacity() {
		return &protocol.EncodingError{
			Field:  "slot",
			Value:  slot,
			Reason: fmt.Sprintf("must be 1..%d", s.capacity()-1),
		}
	}
	return nil
}

// execute runs one transaction and maps a non-success confirmation code to a
// *protocol.DeviceError tagged with cmd.
func (s *Sensor) execute(ctx context.Context, cmd byte, frame []byte) (*protocol.Response, error) {
	start := time.Now()
	resp, err := s.transact(ctx, cmd, frame)
	if err == nil && resp.Code != protocol.CodeOK {
		err = &protocol.DeviceError{Op: cmd, Code: resp.Code}
	}

	elapsed := time.Since(start)
	outcome := classify(err)

	fields := []zap.Field{
		zap.String("cmd", protocol.CommandName(cmd)),
		zap.String("outcome", string(outcome)),
		zap.Duration("elapsed", elapsed),
	}
	if resp != nil {
		fields = append(fields, zap.String("code", fmt.Sprintf("0x%02X", resp.Code)))
	}
	if err != nil && outcome != OutcomeDeviceError {
		s.log.Warn("command failed", append(fields, zap.Error(err))...)
	} else {
		s.log.Debug("command", fields...)
	}

	if s.config.Observer != nil && outcome != "" {
		s.config.Observer.CommandCompleted(cmd, outcome, elapsed)
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// transact writes one command frame and reads the matching response frame.
//
// The module has no request ids, so after any read that did not end cleanly
// on a frame boundary the link is marked stale and resynchronised before the
// next command. A well-formed reply whose data cannot answer cmd is a stray
// from an earlier command; it is discarded and the read continues.
func (s *Sensor) transact(ctx context.Context, cmd byte, frame []byte) (*protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.stale {
		s.resync()
	}

	if _, err := s.port.Write(frame); err != nil {
		s.markStale(true)
		return nil, &TransportError{Op: "write", Command: cmd, Err: err}
	}

	want := protocol.ResponseDataSize(cmd)
	deadline := time.Now().Add(s.config.ReadTimeout)
	wait := s.config.ReadTimeout
	var stray error
	for {
		resp, err := s.readResponse(cmd, wait)
		if err != nil {
			if stray != nil && IsTimeout(err) {
				return nil, stray
			}
			return nil, err
		}
		if resp.Code != protocol.CodeOK || len(resp.Data) == want {
			return resp, nil
		}

		stray = &protocol.FrameError{
			Kind:   protocol.LengthMismatch,
			Detail: fmt.Sprintf("%s reply carries %d data bytes, expected %d", protocol.CommandName(cmd), len(resp.Data), want),
		}
		s.log.Debug("discarded stray reply", zap.String("cmd", protocol.CommandName(cmd)), zap.Int("data_bytes", len(resp.Data)))
		if !time.Now().Before(deadline) {
			s.markStale(true)
			return nil, stray
		}
		wait = max(time.Until(deadline), s.config.DrainTimeout)
	}
}

// readResponse reads one frame: the header within wait, then the body it
// declares within the read timeout.
func (s *Sensor) readResponse(cmd byte, wait time.Duration) (*protocol.Response, error) {
	hdr := make([]byte, protocol.HeaderSize)
	n, err := s.port.ReadFull(hdr, wait)
	if err != nil {
		timeout := errors.Is(err, ErrTimeout)
		s.markStale(timeout)
		if n > 0 && timeout {
			return nil, &protocol.FrameError{Kind: protocol.Truncated, Detail: fmt.Sprintf("header stopped after %d bytes", n)}
		}
		return nil, &TransportError{Op: "read", Command: cmd, Err: err}
	}

	length, err := protocol.ParseHeader(hdr, s.config.Address)
	if err != nil {
		s.markStale(false)
		return nil, err
	}

	body := make([]byte, length)
	n, err = s.port.ReadFull(body, s.config.ReadTimeout)
	if err != nil {
		timeout := errors.Is(err, ErrTimeout)
		s.markStale(timeout)
		if timeout {
			return nil, &protocol.FrameError{Kind: protocol.Truncated, Detail: fmt.Sprintf("got %d of %d body bytes", n, length)}
		}
		return nil, &TransportError{Op: "read", Command: cmd, Err: err}
	}

	resp, err := protocol.ParseResponse(append(hdr, body...), s.config.Address)
	if err != nil {
		s.markStale(false)
		return nil, err
	}
	return resp, nil
}

// markStale schedules a resync before the next command. late means the
// module may still be sending a reply.
func (s *Sensor) markStale(late bool) {
	s.stale = true
	s.late = s.late || late
}

// malformed marks the link stale after a reply that decoded but could not
// be parsed, and returns err.
func (s *Sensor) malformed(err error) error {
	s.markStale(false)
	return err
}

// resync discards whatever is left of an earlier reply. After a timeout it
// keeps listening for up to one read timeout so a reply that is still on
// its way is discarded too.
func (s *Sensor) resync() {
	late := s.late
	s.stale, s.late = false, false

	if f, ok := s.port.(Flusher); ok {
		if err := f.Flush(); err != nil {
			s.log.Warn("flush failed", zap.Error(err))
		}
		if !late {
			return
		}
	}

	var wait time.Duration
	if late {
		wait = s.config.ReadTimeout
	}
	if discarded := s.drain(wait); discarded > 0 {
		s.log.Debug("discarded stale input", zap.Int("bytes", discarded))
	}
}

// drain reads and drops input until the link has been quiet for one drain
// timeout. It keeps going until wait has passed unless stale bytes already
// turned up and stopped.
func (s *Sensor) drain(wait time.Duration) int {
	deadline := time.Now().Add(wait)
	buf := make([]byte, 64)
	discarded := 0
	for {
		n, err := s.port.ReadFull(buf, s.config.DrainTimeout)
		discarded += n
		if err != nil && !errors.Is(err, ErrTimeout) {
			return discarded
		}
		if n == len(buf) {
			continue
		}
		if discarded > 0 || !time.Now().Before(deadline) {
			return discarded
		}
	}
}

func classify(err error) Outcome {
	var (
		devErr   *protocol.DeviceError
		frameErr *protocol.FrameError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &devErr):
		return OutcomeDeviceError
	case errors.As(err, &frameErr):
		return OutcomeFrameError
	case IsTimeout(err):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ""
	default:
		return OutcomeIOError
	}
}
