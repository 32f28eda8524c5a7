package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/wrenhold/quackbot/internal/observe"
	"github.com/wrenhold/quackbot/internal/voice"
	"github.com/wrenhold/quackbot/pkg/audio"
)

// ---- gateway fake ----

type fakeGateway struct {
	mu          sync.Mutex
	sent        []sentMessage
	activities  []string
	voiceStates map[string]*discordgo.VoiceState
	sendErr     error
}

type sentMessage struct {
	channelID string
	content   string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{voiceStates: make(map[string]*discordgo.VoiceState)}
}

func (g *fakeGateway) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentMessage{channelID: channelID, content: content})
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	return &discordgo.Message{ID: "sent"}, nil
}

func (g *fakeGateway) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	vs, ok := g.voiceStates[guildID+"/"+userID]
	if !ok {
		return nil, errors.New("state not found")
	}
	return vs, nil
}

func (g *fakeGateway) UpdateListeningStatus(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activities = append(g.activities, name)
	return nil
}

func (g *fakeGateway) putVoiceState(guildID, userID, channelID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.voiceStates[guildID+"/"+userID] = &discordgo.VoiceState{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
	}
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

func (g *fakeGateway) lastMessage() (sentMessage, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return sentMessage{}, false
	}
	return g.sent[len(g.sent)-1], true
}

// ---- replier fake ----

type fakeReplier struct {
	mu         sync.Mutex
	reply      string
	err        error
	calls      []replierCall
	lastSuffix string
}

type replierCall struct {
	author string
	text   string
}

func (f *fakeReplier) Reply(_ context.Context, author, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, replierCall{author: author, text: text})
	return f.reply, f.err
}

func (f *fakeReplier) ReplyWithSuffix(_ context.Context, author, text, suffix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, replierCall{author: author, text: text})
	f.lastSuffix = suffix
	return f.reply, f.err
}

func (f *fakeReplier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// ---- audio transport fakes ----

type fakeConn struct {
	mu          sync.Mutex
	handler     audio.EventHandler
	stopped     int
	disconnects int
}

func (c *fakeConn) SetHandler(h audio.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *fakeConn) Enqueue(t audio.Track) (audio.TrackHandle, error) {
	return fakeHandle{}, nil
}

func (c *fakeConn) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

type fakeHandle struct{}

func (fakeHandle) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (fakeHandle) Stop() {}

type fakePlatform struct {
	mu       sync.Mutex
	conn     *fakeConn
	err      error
	channels []string
}

func (p *fakePlatform) Connect(_ context.Context, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.channels = append(p.channels, channelID)
	if p.conn == nil {
		p.conn = &fakeConn{}
	}
	return p.conn, nil
}

// ---- helpers ----

func testVoiceSessionFactory(t *testing.T, p audio.Platform) SessionFactory {
	t.Helper()
	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return func(guildID string) *voice.Session {
		return voice.NewSession(voice.SessionConfig{
			Log:            slog.New(slog.DiscardHandler),
			Metrics:        metrics,
			Platform:       p,
			Classifier:     voice.NewClassifier("adam"),
			SuppressMargin: time.Millisecond,
			MaxUtterance:   time.Second,
		})
	}
}
