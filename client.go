package mqttq

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// farewellTimeout bounds the DISCONNECT sent by Disconnect.
const farewellTimeout = time.Second

// Client is a pull-style MQTT 3.1.1 client. Received messages are queued
// by a background receiver and retrieved with Get, GetContext or TryGet.
//
// A Client is safe for concurrent use. Connect, Disconnect and Run are
// serialized; sends are serialized by the send gate.
type Client struct {
	options *clientOptions
	logger  Logger
	metrics *clientMetrics
	limiter *rate.Limiter

	clientID atomic.Value // string
	ids      messageIDs
	clock    *keepAliveClock
	gate     *sendGate
	queue    *inboundQueue

	// opMu serializes lifecycle transitions. The receiver never takes it.
	opMu sync.Mutex
	recv *receiver

	errs    chan error
	errMu   sync.Mutex
	lastErr error
}

// receiver is the background goroutine reading one connection.
type receiver struct {
	conn   net.Conn
	reader *bufio.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient creates a disconnected client.
func NewClient(opts ...Option) *Client {
	options := applyOptions(opts...)

	c := &Client{
		options: options,
		logger:  options.logger,
		metrics: newClientMetrics(options.metrics),
		clock:   newKeepAliveClock(options.keepAlive),
		queue:   newInboundQueue(),
		errs:    make(chan error, options.errorBuffer),
	}

	c.gate = &sendGate{
		writeTimeout:  options.writeTimeout,
		maxPacketSize: options.maxPacketSize,
		clock:         c.clock,
		metrics:       c.metrics,
	}

	if options.publishLimit != rate.Inf {
		c.limiter = rate.NewLimiter(options.publishLimit, options.publishBurst)
	}

	c.clientID.Store(options.clientID)

	return c
}

// Connect connects with the configured client identifier and credentials.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWith(ctx, "", nil)
}

// ConnectWith connects using clientID and creds in place of the configured
// ones when they are set. It is a no-op when already connected.
//
// The handshake fails with ErrTimeout when no CONNACK arrives within the
// ack timeout, with ErrProtocol when the first packet is not a CONNACK and
// with a *ConnectError when the broker refuses the connection.
func (c *Client) ConnectWith(ctx context.Context, clientID string, creds *Credentials) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.connect(ctx, clientID, creds)
}

func (c *Client) connect(ctx context.Context, clientID string, creds *Credentials) error {
	if c.gate.isAttached() {
		return nil
	}

	c.reap()

	if clientID == "" {
		clientID = c.ClientID()
	}
	if creds == nil {
		creds = c.options.credentials
	}

	fields := LogFields{LogFieldClientID: clientID}
	start := time.Now()

	conn, err := c.dial(ctx)
	if err != nil {
		c.metrics.connectAttempt("dial_error", 0)
		c.logger.Error("dial failed", LogFields{LogFieldClientID: clientID, LogFieldError: err})
		return err
	}

	if err := c.gate.sendVia(conn, c.buildConnect(clientID, creds)); err != nil {
		conn.Close()
		c.metrics.connectAttempt("write_error", 0)
		c.logger.Error("sending CONNECT failed", LogFields{LogFieldClientID: clientID, LogFieldError: err})
		return err
	}

	reader := bufio.NewReader(conn)
	connack, err := c.awaitConnack(ctx, conn, reader)
	if err != nil {
		conn.Close()
		c.metrics.connectAttempt(connectResult(err), 0)
		c.logger.Error("handshake failed", LogFields{LogFieldClientID: clientID, LogFieldError: err})
		return err
	}

	c.clientID.Store(clientID)
	c.gate.attach(conn)
	c.clock.touch()
	c.startReceiver(conn, reader)

	elapsed := time.Since(start)
	c.metrics.connectAttempt("accepted", elapsed)
	c.metrics.connected(true)

	fields[LogFieldRemoteAddr] = conn.RemoteAddr().String()
	fields[LogFieldDuration] = elapsed.String()
	fields["session_present"] = connack.SessionPresent
	c.logger.Info("connected", fields)
	c.emit(ErrConnected)

	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer, address, err := newDialer(c.options)
	if err != nil {
		return nil, err
	}

	if c.options.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.connectTimeout)
		defer cancel()
	}

	conn, err := dialer.Dial(ctx, address)
	if err != nil {
		return nil, NewTransportError("dial "+address, err)
	}
	return conn, nil
}

func (c *Client) buildConnect(clientID string, creds *Credentials) *ConnectPacket {
	pkt := &ConnectPacket{
		ClientID:   clientID,
		CleanStart: c.options.cleanStart,
		KeepAlive:  c.options.keepAlive,
	}

	if creds != nil {
		pkt.Username = creds.Username
		pkt.Password = creds.Password
	}

	if will := c.options.will; will != nil {
		pkt.WillFlag = true
		pkt.WillTopic = will.Topic
		pkt.WillPayload = will.Payload
		pkt.WillQoS = will.QoS
		pkt.WillRetain = will.Retain
	}

	return pkt
}

// awaitConnack reads the first packet from the broker.
func (c *Client) awaitConnack(ctx context.Context, conn net.Conn, reader *bufio.Reader) (*ConnackPacket, error) {
	if c.options.ackTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.options.ackTimeout))
	}
	defer conn.SetReadDeadline(time.Time{})

	// unblock the read when ctx ends first
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	pkt, _, err := ReadPacket(reader, c.options.maxPacketSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, classifyReadError("read CONNACK", err)
	}

	connack, ok := pkt.(*ConnackPacket)
	if !ok {
		return nil, fmt.Errorf("%w: expected CONNACK, got %s", ErrProtocol, pkt.Type())
	}

	if !connack.ReturnCode.Accepted() {
		return nil, NewConnectError(connack.ReturnCode)
	}

	return connack, nil
}

func (c *Client) startReceiver(conn net.Conn, reader *bufio.Reader) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &receiver{
		conn:   conn,
		reader: reader,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.recv = r

	go c.receive(ctx, r)
}

// reap collects a receiver that already failed. Caller holds opMu.
func (c *Client) reap() {
	if r := c.recv; r != nil {
		r.cancel()
		<-r.done
		c.recv = nil
	}
}

// Run connects, calls fn and disconnects on every return path, panics
// included. It returns the connect error or the error from fn.
func (c *Client) Run(ctx context.Context, fn func(*Client) error) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect(true)

	return fn(c)
}

// Disconnect tears the connection down. With farewell set a DISCONNECT is
// sent first, within the write timeout but never longer than a second; a
// failure to send it is ignored. The receiver is stopped and
// waited for before the connection is closed. Calling Disconnect on a
// disconnected client does nothing.
func (c *Client) Disconnect(farewell bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	r := c.recv
	c.recv = nil

	if !c.gate.isAttached() {
		// the receiver already failed and reported; just collect it
		if r != nil {
			r.cancel()
			<-r.done
			r.conn.Close()
		}
		return nil
	}

	if r != nil {
		r.cancel()
	}

	if farewell {
		timeout := c.options.writeTimeout
		if timeout <= 0 || timeout > farewellTimeout {
			timeout = farewellTimeout
		}
		if err := c.gate.sendWithin(&DisconnectPacket{}, timeout); err != nil {
			c.logger.Debug("sending DISCONNECT failed", LogFields{LogFieldError: err})
		}
	}

	if r != nil {
		// wake a pending poll instead of waiting for its deadline
		r.conn.SetReadDeadline(time.Now())
		<-r.done
	}

	if conn := c.gate.detach(nil); conn != nil {
		conn.Close()
	}
	if r != nil {
		r.conn.Close()
	}

	c.metrics.connected(false)
	c.logger.Info("disconnected", LogFields{LogFieldClientID: c.ClientID()})
	c.emit(ErrDisconnected)

	return nil
}

// Close disconnects gracefully. It implements io.Closer.
func (c *Client) Close() error {
	return c.Disconnect(true)
}

// IsConnected returns true while the client holds a connection.
func (c *Client) IsConnected() bool {
	return c.gate.isAttached()
}

// ClientID returns the client identifier of the current or last session.
func (c *Client) ClientID() string {
	return c.clientID.Load().(string)
}

// receive is the receiver loop. It exits when ctx is cancelled or the
// connection fails. The loss event is emitted after done is closed, so an
// event handler may call Connect or Disconnect.
func (c *Client) receive(ctx context.Context, r *receiver) {
	var lost error
	defer func() {
		close(r.done)
		if lost != nil {
			c.emit(lost)
		}
	}()

	for ctx.Err() == nil {
		err := c.poll(r)
		if err == nil && ctx.Err() == nil && c.clock.due() {
			err = c.gate.send(&PingreqPacket{})
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			lost = c.fail(r, err)
			return
		}
	}
}

// poll waits one poll interval for data and decodes at most one packet.
func (c *Client) poll(r *receiver) error {
	if err := r.conn.SetReadDeadline(time.Now().Add(c.options.pollInterval)); err != nil {
		return NewTransportError("poll", err)
	}

	if _, err := r.reader.Peek(1); err != nil {
		if isTimeout(err) {
			return nil
		}
		return classifyReadError("poll", err)
	}

	deadline := time.Time{}
	if c.options.readTimeout > 0 {
		deadline = time.Now().Add(c.options.readTimeout)
	}
	if err := r.conn.SetReadDeadline(deadline); err != nil {
		return NewTransportError("read", err)
	}

	pkt, n, err := ReadPacket(r.reader, c.options.maxPacketSize)
	if err != nil {
		return classifyReadError("read", err)
	}

	c.metrics.packetReceived(pkt.Type(), n)
	c.route(pkt)

	return nil
}

// route queues PUBLISH packets and drops everything else. QoS 1 and 2
// acknowledgements are not handled.
func (c *Client) route(pkt Packet) {
	if pub, ok := pkt.(*PublishPacket); ok {
		c.metrics.queueDepth(c.queue.push(pub.ToMessage()))
		return
	}

	c.metrics.packetDropped(pkt.Type())
	c.logger.Debug("dropping packet", LogFields{LogFieldPacketType: pkt.Type().String()})
}

// fail tears down the receiver's connection and reports the failure on
// the error channel. The returned error is the event to emit.
func (c *Client) fail(r *receiver, cause error) error {
	if c.gate.detach(r.conn) != nil {
		c.metrics.connected(false)
	}
	r.conn.Close()

	// a failed send closed the connection under the receiver
	if err := c.gate.writeFailure(r.conn); err != nil {
		cause = err
	}

	lost := NewConnectionLostError(cause)

	c.errMu.Lock()
	c.lastErr = lost
	c.errMu.Unlock()

	c.metrics.connectionLost()
	c.logger.Error("connection lost", LogFields{LogFieldClientID: c.ClientID(), LogFieldError: cause})

	select {
	case c.errs <- lost:
	default:
		c.logger.Warn("error channel full, dropping error", LogFields{LogFieldError: lost})
	}

	return lost
}

// Errors returns a channel of fatal receiver errors. Each is a
// *ConnectionLostError. When nobody drains the channel, errors beyond its
// capacity are dropped but the latest is still available from Err.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// Err returns the last fatal receiver error, or nil.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

func (c *Client) emit(event error) {
	if c.options.onEvent != nil {
		c.options.onEvent(c, event)
	}
}

// PublishOption configures a single publish.
type PublishOption func(*Message)

// WithRetain sets the retain flag.
func WithRetain(retain bool) PublishOption {
	return func(m *Message) {
		m.Retain = retain
	}
}

// WithQoS sets the QoS level. Levels above 0 are sent on the wire but the
// client does not wait for or handle their acknowledgements.
func WithQoS(qos byte) PublishOption {
	return func(m *Message) {
		m.QoS = qos
	}
}

// Publish sends payload to topic. It returns once the packet is written.
func (c *Client) Publish(topic string, payload []byte, opts ...PublishOption) error {
	msg := &Message{Topic: topic, Payload: payload}
	for _, opt := range opts {
		opt(msg)
	}
	return c.PublishMessage(msg)
}

// PublishMessage sends msg. It returns once the packet is written.
func (c *Client) PublishMessage(msg *Message) error {
	if err := ValidateTopicName(msg.Topic); err != nil {
		return err
	}
	if msg.QoS > QoS2 {
		return ErrInvalidQoS
	}

	if !c.gate.isAttached() {
		return ErrNotConnected
	}

	if err := c.waitRate(); err != nil {
		return err
	}

	pkt := &PublishPacket{}
	pkt.FromMessage(msg)
	pkt.PacketID = c.ids.next()

	if err := c.gate.send(pkt); err != nil {
		return err
	}

	c.logger.Debug("published", LogFields{
		LogFieldTopic:    msg.Topic,
		LogFieldQoS:      msg.QoS,
		LogFieldPacketID: pkt.PacketID,
		LogFieldBytes:    len(msg.Payload),
	})

	return nil
}

func (c *Client) waitRate() error {
	if c.limiter == nil {
		return nil
	}

	ctx := context.Background()
	if c.options.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.writeTimeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return nil
}

// Subscribe subscribes to topics, which may be a string, []string,
// Subscription, []Subscription or map[string]byte (see NormalizeTopics).
// The SUBACK is not waited for.
func (c *Client) Subscribe(topics any) error {
	subs, err := NormalizeTopics(topics)
	if err != nil {
		return err
	}

	if !c.gate.isAttached() {
		return ErrNotConnected
	}

	pkt := &SubscribePacket{
		PacketID:      c.ids.next(),
		Subscriptions: subs,
	}
	if err := c.gate.send(pkt); err != nil {
		return err
	}

	for _, sub := range subs {
		c.logger.Debug("subscribed", LogFields{LogFieldTopic: sub.Topic, LogFieldQoS: sub.QoS, LogFieldPacketID: pkt.PacketID})
	}
	return nil
}

// Unsubscribe removes subscriptions. It accepts the same shapes as
// Subscribe; QoS values are ignored. The UNSUBACK is not waited for.
func (c *Client) Unsubscribe(topics any) error {
	subs, err := NormalizeTopics(topics)
	if err != nil {
		return err
	}

	if !c.gate.isAttached() {
		return ErrNotConnected
	}

	filters := make([]string, len(subs))
	for i, sub := range subs {
		filters[i] = sub.Topic
	}

	return c.gate.send(&UnsubscribePacket{
		PacketID: c.ids.next(),
		Topics:   filters,
	})
}

// Ping sends a PINGREQ now and restarts the keep-alive interval. The
// PINGRESP is consumed by the receiver.
func (c *Client) Ping() error {
	return c.gate.send(&PingreqPacket{})
}

// Get blocks until a message is available and returns it. It has no
// timeout and is not interrupted by Disconnect; use GetContext to bound
// the wait.
func (c *Client) Get() Message {
	msg, _ := c.GetContext(context.Background())
	return msg
}

// GetContext blocks until a message is available or ctx is done.
func (c *Client) GetContext(ctx context.Context) (Message, error) {
	msg, err := c.queue.pop(ctx)
	if err != nil {
		return Message{}, err
	}
	c.metrics.queueDepth(c.queue.len())
	return msg, nil
}

// TryGet returns the oldest queued message without blocking.
func (c *Client) TryGet() (Message, bool) {
	msg, ok := c.queue.tryPop()
	if ok {
		c.metrics.queueDepth(c.queue.len())
	}
	return msg, ok
}

// Pending returns the number of queued messages.
func (c *Client) Pending() int {
	return c.queue.len()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyReadError separates bad bytes from a broken stream.
func classifyReadError(op string, err error) error {
	if errors.Is(err, ErrInvalidPacket) {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return NewTransportError(op, err)
}

func connectResult(err error) string {
	var connErr *ConnectError
	switch {
	case errors.As(err, &connErr):
		return "refused"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrProtocol):
		return "protocol_error"
	default:
		return "transport_error"
	}
}
