// Package mqttq is a pull-style MQTT 3.1.1 client.
//
// The client keeps one connection to a broker. A background receiver
// decodes inbound packets, queues every PUBLISH and sends PINGREQ when the
// connection has been idle for the keep-alive interval. Applications take
// messages off the queue with Get, GetContext or TryGet whenever they are
// ready; the receiver never waits for them.
//
// Delivery is QoS 0. Packets can be published and subscribed at QoS 1 and 2
// but their acknowledgements are dropped, and nothing is retried or
// persisted. There is no automatic reconnect: receiver failures are
// reported on Errors and the application decides whether to Connect again.
//
// # Client
//
//	client := mqttq.NewClient(
//	    mqttq.WithHost("broker.local"),
//	    mqttq.WithClientID("sensor-17"),
//	    mqttq.WithKeepAlive(30),
//	)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Subscribe(map[string]byte{"sensors/+/temp": 0, "alerts/#": 0})
//	client.Publish("sensors/17/temp", []byte("21.5"), mqttq.WithRetain(true))
//
//	msg, err := client.GetContext(ctx)
//
// Run scopes a session to a function and always disconnects:
//
//	err := client.Run(ctx, func(c *mqttq.Client) error {
//	    return c.Publish("status", []byte("online"))
//	})
//
// # Transports
//
// WithTransport selects tcp (default), tls, ws, wss, quic or unix.
// WithProxy tunnels tcp, tls and ws through HTTP CONNECT or SOCKS5.
//
// # Codec
//
// ReadPacket and WritePacket encode and decode every MQTT 3.1.1 control
// packet and can be used without a Client:
//
//	pkt, n, err := mqttq.ReadPacket(conn, mqttq.MaxPacketSizeDefault)
//	n, err := mqttq.WritePacket(conn, &mqttq.PingreqPacket{}, 0)
//
// # Errors
//
// Sentinels are matched with errors.Is: ErrNotConnected, ErrProtocol,
// ErrTimeout, ErrTransport, ErrAuthFailed, ErrInvalidTopic and
// ErrRateLimited. *ConnectError, *TransportError and *ConnectionLostError
// carry details and are extracted with errors.As.
//
// # Logging
//
//	logger := mqttq.NewSlogLogger(os.Stderr, mqttq.LogLevelInfo)
//	client := mqttq.NewClient(mqttq.WithLogger(logger))
package mqttq
