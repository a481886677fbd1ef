package terrain

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ProgressMessage is published after every fill pass and stage
type ProgressMessage struct {
	RunID     string `json:"runId"`
	Stage     Stage  `json:"stage"`
	Pass      int    `json:"pass,omitempty"`
	Added     int    `json:"added"`
	Total     *int   `json:"total,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SummaryMessage is published once per run
type SummaryMessage struct {
	RunID         string           `json:"runId"`
	Samples       int              `json:"samples"`
	Points        int              `json:"points"`
	OuterTotal    int              `json:"outerTotal"`
	OuterPasses   int              `json:"outerPasses"`
	HoleTotal     int              `json:"holeTotal"`
	HolePasses    int              `json:"holePasses"`
	Replaced      int              `json:"replaced"`
	TrailingAdded int              `json:"trailingAdded"`
	Elevation     ElevationSummary `json:"elevation"`
	ElapsedMS     int64            `json:"elapsedMs"`
	Timestamp     int64            `json:"timestamp"`
}

// Publisher reports run progress over MQTT. It implements ProgressReporter.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	timeout       time.Duration
}

// NewPublisher creates a publisher on prefix. If client is nil, publishing
// is disabled.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "terrafill"
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,
		timeout:       2 * time.Second,
	}
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

func (p *Publisher) publish(topic string, retain bool, v interface{}) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, retain, payload)
	if token.WaitTimeout(p.timeout) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}

func (p *Publisher) progressTopic() string {
	return fmt.Sprintf("%s/progress", p.publishPrefix)
}

func (p *Publisher) summaryTopic() string {
	return fmt.Sprintf("%s/summary", p.publishPrefix)
}

// PassCompleted publishes the count added by one pass
func (p *Publisher) PassCompleted(runID string, stage Stage, pass, added int) {
	msg := ProgressMessage{
		RunID:     runID,
		Stage:     stage,
		Pass:      pass,
		Added:     added,
		Timestamp: time.Now().Unix(),
	}
	if err := p.publish(p.progressTopic(), false, msg); err != nil {
		log.Printf("Error publishing progress for %s: %v", runID, err)
	}
}

// StageCompleted publishes the total added by a fill loop
func (p *Publisher) StageCompleted(runID string, stage Stage, total int) {
	msg := ProgressMessage{
		RunID:     runID,
		Stage:     stage,
		Added:     total,
		Total:     &total,
		Timestamp: time.Now().Unix(),
	}
	if err := p.publish(p.progressTopic(), false, msg); err != nil {
		log.Printf("Error publishing stage total for %s: %v", runID, err)
	}
}

// NewSummaryMessage builds the summary payload for res
func NewSummaryMessage(res *Result) SummaryMessage {
	samples := 0
	if res.Set != nil {
		samples = len(res.Set.Samples)
	}
	return SummaryMessage{
		RunID:         res.RunID,
		Samples:       samples,
		Points:        len(res.Points),
		OuterTotal:    res.OuterTotal,
		OuterPasses:   len(res.OuterPasses),
		HoleTotal:     res.HoleTotal,
		HolePasses:    len(res.HolePasses),
		Replaced:      res.Replaced,
		TrailingAdded: res.TrailingAdded,
		Elevation:     SummarizeElevations(res.Points),
		ElapsedMS:     res.Elapsed.Milliseconds(),
		Timestamp:     time.Now().Unix(),
	}
}

// PublishSummary publishes the retained run summary
func (p *Publisher) PublishSummary(res *Result) error {
	if err := p.publish(p.summaryTopic(), true, NewSummaryMessage(res)); err != nil {
		return err
	}
	log.Printf("Published summary for run %s to %s", res.RunID, p.summaryTopic())
	return nil
}

// ConnectMQTT connects to the configured broker. It returns a nil client
// when no broker is configured.
func ConnectMQTT(config MQTTConfig) (mqtt.Client, error) {
	if config.Broker == "" {
		log.Println("MQTT disabled: no broker configured")
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connecting to %s: timed out", config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", config.Broker, err)
	}

	log.Printf("Connected to MQTT broker %s", config.Broker)
	return client, nil
}
