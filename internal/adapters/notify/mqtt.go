package notify

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTSender publishes events as JSON to <prefix>/<kind>.
type MQTTSender struct {
	cli    pahoClient
	prefix string
	qos    byte
}

func NewMQTTSender(opts MQTTOptions, log logger.Logger) (*MQTTSender, error) {
	if opts.Broker == "" {
		return nil, errors.New("mqtt sender: broker is empty")
	}
	if log == nil {
		log = logger.Nop{}
	}

	po := paho.NewClientOptions().AddBroker(opts.Broker).SetClientID(opts.ClientID)
	po.AutoReconnect = true
	if opts.Username != "" {
		po.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		po.SetPassword(opts.Password)
	}
	po.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", opts.Broker) }
	po.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("MQTT connection lost: %v", err) }

	c := newMQTTClient(po)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt sender: connect: %w", token.Error())
	}

	return &MQTTSender{
		cli:    c,
		prefix: strings.TrimRight(opts.TopicPrefix, "/"),
		qos:    opts.QoS,
	}, nil
}

func (*MQTTSender) Name() string { return "mqtt" }

func (m *MQTTSender) Send(ctx context.Context, ev domain.Event) error {
	if !m.cli.IsConnected() {
		return errors.New("mqtt sender: not connected")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("mqtt sender: encode: %w", err)
	}

	token := m.cli.Publish(m.prefix+"/"+string(ev.Kind), m.qos, false, payload)

	wait := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		wait = time.Until(dl)
	}
	if !token.WaitTimeout(wait) {
		return errors.New("mqtt sender: publish timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt sender: publish: %w", err)
	}
	return nil
}

func (m *MQTTSender) Close() { m.cli.Disconnect(250) }
