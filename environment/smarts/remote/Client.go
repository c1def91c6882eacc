// Package remote implements a smarts.Simulator which drives a SMARTS
// simulator bridge over a websocket.
//
// Every request carries a fresh UUID which the bridge must echo in its
// response. Requests are JSON objects with a method of make, reset,
// step, or close. The first request on a connection is always make,
// which tells the bridge which scenarios to load, which agents to
// create, and the interface through which each agent observes and acts.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/samuelfneumann/smartslearn/agent"
	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/utils/logging"
)

// ErrClosed is returned when using a Client after Close
var ErrClosed = errors.New("remote simulator closed")

// DefaultTimeout bounds a single request to the bridge
const DefaultTimeout = 30 * time.Second

// Request methods
const (
	MethodMake  = "make"
	MethodReset = "reset"
	MethodStep  = "step"
	MethodClose = "close"
)

// Config configures the simulation created by Dial
type Config struct {
	Scenarios []string
	AgentIDs  []string

	// Interfaces holds the interface of every agent in AgentIDs
	Interfaces map[string]agent.Interface

	Headless bool
	Seed     uint64

	// Timeout bounds each request. Zero uses DefaultTimeout.
	Timeout time.Duration

	Logger *zap.Logger
}

// MakeParams are the parameters of a make request
type MakeParams struct {
	Scenarios  []string                   `json:"scenarios"`
	AgentIDs   []string                   `json:"agent_ids"`
	Interfaces map[string]agent.Interface `json:"agent_interfaces"`
	Headless   bool                       `json:"headless"`
	Seed       uint64                     `json:"seed"`
}

// Request is a message sent to the bridge
type Request struct {
	ID      string                   `json:"id"`
	Method  string                   `json:"method"`
	Make    *MakeParams              `json:"make,omitempty"`
	Actions map[string]smarts.Action `json:"actions,omitempty"`
}

// Response is a message received from the bridge
type Response struct {
	ID           string                        `json:"id"`
	Error        string                        `json:"error,omitempty"`
	Observations map[string]smarts.Observation `json:"observations,omitempty"`
	Step         *smarts.StepResult            `json:"step,omitempty"`
}

// Client is a smarts.Simulator connected to a remote bridge. A Client
// may be shared between goroutines but requests are serialized.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
	closing bool
	closed  bool
	logger  *zap.Logger
}

// Dial connects to the bridge at url and creates the simulation
// described by config
func Dial(ctx context.Context, url string, config Config) (*Client, error) {
	if len(config.AgentIDs) == 0 {
		return nil, fmt.Errorf("dial: no agent ids")
	}
	if len(config.Scenarios) == 0 {
		return nil, fmt.Errorf("dial: no scenarios")
	}
	for _, id := range config.AgentIDs {
		if _, ok := config.Interfaces[id]; !ok {
			return nil, fmt.Errorf("dial: no interface for agent %v", id)
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		conn:    conn,
		timeout: timeout,
		logger:  logging.OrNop(config.Logger).With(zap.String("bridge", url)),
	}

	_, err = c.call(Request{
		Method: MethodMake,
		Make: &MakeParams{
			Scenarios:  config.Scenarios,
			AgentIDs:   config.AgentIDs,
			Interfaces: config.Interfaces,
			Headless:   config.Headless,
			Seed:       config.Seed,
		},
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("dial: %w", err)
	}

	c.logger.Info("connected to simulator",
		zap.Strings("scenarios", config.Scenarios),
		zap.Strings("agents", config.AgentIDs),
	)
	return c, nil
}

// Reset implements the smarts.Simulator interface
func (c *Client) Reset() (map[string]smarts.Observation, error) {
	resp, err := c.call(Request{Method: MethodReset})
	if err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	if len(resp.Observations) == 0 {
		return nil, fmt.Errorf("reset: bridge returned no observations")
	}
	return resp.Observations, nil
}

// Step implements the smarts.Simulator interface
func (c *Client) Step(actions map[string]smarts.Action) (smarts.StepResult,
	error) {
	resp, err := c.call(Request{Method: MethodStep, Actions: actions})
	if err != nil {
		return smarts.StepResult{}, fmt.Errorf("step: %w", err)
	}
	if resp.Step == nil {
		return smarts.StepResult{}, fmt.Errorf("step: bridge returned no " +
			"step result")
	}
	return *resp.Step, nil
}

// Close asks the bridge to shut the simulation down and closes the
// connection. Only the first call to Close does anything.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closing || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	_, err := c.call(Request{Method: MethodClose})
	if err != nil {
		c.logger.Warn("bridge did not acknowledge close", zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return c.conn.Close()
}

// call sends req with a fresh id and waits for the matching response
func (c *Client) call(req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Response{}, ErrClosed
	}

	req.ID = uuid.NewString()
	deadline := time.Now().Add(c.timeout)
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return Response{}, err
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return Response{}, fmt.Errorf("could not send %v request: %w",
			req.Method, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return Response{}, fmt.Errorf("could not read %v response: %w",
			req.Method, err)
	}

	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("response id mismatch\n\twant(%v)"+
			"\n\thave(%v)", req.ID, resp.ID)
	}
	if resp.Error != "" {
		return Response{}, fmt.Errorf("bridge: %v", resp.Error)
	}

	c.logger.Debug("request complete", zap.String("method", req.Method),
		zap.String("id", req.ID))
	return resp, nil
}
