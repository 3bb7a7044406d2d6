// Package messaging publishes completed analysis reports to an AMQP queue so
// downstream consumers can store or react to them without polling the HTTP
// API. The publisher is optional; when no broker is configured the server
// runs without it.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"gestrec-server/pkg/gesture"
	"gestrec-server/pkg/metrics"
)

const (
	connectTimeout       = 5 * time.Second
	publishTimeout       = 2 * time.Second
	maxReconnectAttempts = 10
	maxReconnectBackoff  = 30 * time.Second
)

// ReportMessage is the envelope published for each completed analysis.
type ReportMessage struct {
	AnalysisID string          `json:"analysis_id"`
	Report     *gesture.Report `json:"report"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AMQPConfig holds publisher configuration.
type AMQPConfig struct {
	URL       string
	QueueName string
}

// AMQPClient publishes analysis reports to a single durable queue and
// reconnects with backoff when the broker drops the connection.
type AMQPClient struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
	stopChan  chan struct{}
}

// NewAMQPClient creates a publisher. It does not connect; call Connect.
func NewAMQPClient(logger *logrus.Logger, config AMQPConfig) *AMQPClient {
	return &AMQPClient{
		logger:   logger,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Connect establishes the connection, opens a channel, and declares the
// report queue. Safe to call again after a disconnect.
func (c *AMQPClient) Connect() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.connected {
		return nil
	}
	if c.config.URL == "" || c.config.QueueName == "" {
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := dialWithTimeout(c.config.URL, connectTimeout)
	if err != nil {
		metrics.RecordAMQPConnectionError("dial")
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		metrics.RecordAMQPConnectionError("channel")
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	// Durable, not auto-deleted: reports must survive a broker restart.
	if _, err := channel.QueueDeclare(c.config.QueueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		metrics.RecordAMQPConnectionError("queue_declare")
		return fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.connected = true
	c.stopChan = make(chan struct{})
	metrics.SetAMQPConnectionStatus(true)

	c.logger.WithField("queue", c.config.QueueName).Info("Connected to AMQP server")

	go c.monitorConnection()
	return nil
}

// dialWithTimeout bounds amqp.Dial, which otherwise blocks for the full TCP
// timeout when the broker is unreachable.
func dialWithTimeout(url string, timeout time.Duration) (*amqp.Connection, error) {
	type dialResult struct {
		conn *amqp.Connection
		err  error
	}
	resultChan := make(chan dialResult, 1)

	go func() {
		conn, err := amqp.Dial(url)
		resultChan <- dialResult{conn, err}
	}()

	select {
	case result := <-resultChan:
		return result.conn, result.err
	case <-time.After(timeout):
		go func() {
			if result := <-resultChan; result.conn != nil {
				result.conn.Close()
			}
		}()
		return nil, fmt.Errorf("connection timed out after %s", timeout)
	}
}

// Disconnect closes the connection and stops the reconnect monitor.
func (c *AMQPClient) Disconnect() {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if !c.connected {
		return
	}

	close(c.stopChan)
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.connected = false
	metrics.SetAMQPConnectionStatus(false)
	c.logger.Info("Disconnected from AMQP server")
}

// IsConnected returns the connection status.
func (c *AMQPClient) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

// PublishReport publishes one completed analysis report as persistent JSON.
// Failures are returned to the caller but must never take the server down,
// so panics from the underlying channel are recovered.
func (c *AMQPClient) PublishReport(report *gesture.Report) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithField("recover", r).Error("Recovered from panic while publishing report")
			err = fmt.Errorf("panic while publishing report: %v", r)
		}
	}()

	if report == nil {
		return fmt.Errorf("no report to publish")
	}
	if !c.IsConnected() {
		metrics.RecordAMQPPublish(c.config.QueueName, "not_connected")
		return fmt.Errorf("not connected to AMQP server")
	}

	message := ReportMessage{
		AnalysisID: report.ID,
		Report:     report,
		Timestamp:  time.Now().UTC(),
	}
	body, err := json.Marshal(message)
	if err != nil {
		metrics.RecordAMQPPublish(c.config.QueueName, "marshal_failed")
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	publishChan := make(chan error, 1)
	go func() {
		c.connMutex.RLock()
		defer c.connMutex.RUnlock()

		if !c.connected || c.channel == nil {
			publishChan <- fmt.Errorf("lost AMQP connection before publishing")
			return
		}
		publishChan <- c.channel.Publish(
			"",                 // default exchange
			c.config.QueueName, // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
			},
		)
	}()

	select {
	case publishErr := <-publishChan:
		if publishErr != nil {
			metrics.RecordAMQPPublish(c.config.QueueName, "failed")
			return fmt.Errorf("failed to publish report: %w", publishErr)
		}
	case <-time.After(publishTimeout):
		metrics.RecordAMQPPublish(c.config.QueueName, "timeout")
		return fmt.Errorf("publishing report timed out after %s", publishTimeout)
	}

	metrics.RecordAMQPPublish(c.config.QueueName, "published")
	c.logger.WithField("analysis_id", report.ID).Debug("Published analysis report")
	return nil
}

// monitorConnection watches for the broker closing the connection and
// reconnects with exponential backoff. Each successful Connect starts a new
// monitor, so this one returns once it has handed off.
func (c *AMQPClient) monitorConnection() {
	c.connMutex.RLock()
	conn := c.conn
	stop := c.stopChan
	c.connMutex.RUnlock()

	closeChan := make(chan *amqp.Error, 1)
	if conn != nil {
		conn.NotifyClose(closeChan)
	}

	select {
	case <-stop:
		return
	case closeErr := <-closeChan:
		// A nil close error means Disconnect closed the connection.
		if closeErr == nil {
			return
		}

		c.connMutex.Lock()
		c.connected = false
		c.connMutex.Unlock()
		metrics.SetAMQPConnectionStatus(false)
		metrics.RecordAMQPConnectionError("closed")

		c.logger.WithError(closeErr).Warn("AMQP connection closed, attempting to reconnect")

		for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
			select {
			case <-stop:
				return
			default:
			}

			err := c.Connect()
			if err == nil {
				c.logger.WithField("attempt", attempt).Info("Reconnected to AMQP server")
				return
			}
			c.logger.WithError(err).WithField("attempt", attempt).Warn("Failed to reconnect to AMQP server")

			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if backoff > maxReconnectBackoff {
				backoff = maxReconnectBackoff
			}
			time.Sleep(backoff)
		}
		c.logger.Error("Giving up reconnecting to AMQP server")
	}
}
