package discord

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/wrenhold/quackbot/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. Incoming Opus packets are decoded per SSRC
// and batched into one [audio.EventTick] per 20 ms interval; speaking updates
// are forwarded as [audio.EventSpeakingStart] notifications. Outgoing tracks
// are played through an ordered queue that encodes PCM back to Opus.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc *discordgo.VoiceConnection

	handlerMu sync.Mutex
	handler   audio.EventHandler

	queue *playQueue

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// disconnectVC is called during Disconnect to tear down the voice
	// connection. Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts its receive and playback goroutines.
func newConnection(vc *discordgo.VoiceConnection) *Connection {
	c := &Connection{
		vc:           vc,
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
	}

	c.queue = newPlayQueue(c.done, c.sendOpus, c.setSpeaking)

	vc.AddHandler(c.handleSpeakingUpdate)

	c.wg.Add(2)
	go c.recvLoop()
	go func() {
		defer c.wg.Done()
		c.queue.run()
	}()

	return c
}

// SetHandler implements [audio.Connection].
func (c *Connection) SetHandler(h audio.EventHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handler = h
}

// Enqueue implements [audio.Connection].
func (c *Connection) Enqueue(t audio.Track) (audio.TrackHandle, error) {
	return c.queue.enqueue(t)
}

// Stop implements [audio.Connection]: it halts the current track and clears
// the playback queue.
func (c *Connection) Stop() {
	c.queue.stopAll()
}

// Disconnect cleanly tears down the voice connection and stops all background
// goroutines. Safe to call more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.queue.stopAll()
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
		c.wg.Wait()
	})
	return err
}

// recvLoop reads Opus packets from the Discord voice connection, decodes them
// per SSRC, and emits one tick event per 20 ms interval carrying everything
// received in that window. Ticks are emitted during silence too, with an
// empty frame list.
func (c *Connection) recvLoop() {
	defer c.wg.Done()

	decoders := make(map[uint32]*opusDecoder)
	pending := make(map[uint32][]int16)

	ticker := time.NewTicker(opusFrameSizeMs * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case pkt, ok := <-c.vc.OpusRecv:
			if !ok {
				// Transport closed the receive stream underneath us.
				c.emit(audio.Event{Type: audio.EventDisconnect})
				return
			}
			if pkt == nil {
				continue
			}

			dec, exists := decoders[pkt.SSRC]
			if !exists {
				var err error
				dec, err = newOpusDecoder()
				if err != nil {
					slog.Error("discord: create opus decoder", "ssrc", pkt.SSRC, "error", err)
					continue
				}
				decoders[pkt.SSRC] = dec
			}

			pcm, err := dec.decode(pkt.Opus)
			if err != nil {
				slog.Warn("discord: opus decode error", "ssrc", pkt.SSRC, "error", err)
				continue
			}
			pending[pkt.SSRC] = append(pending[pkt.SSRC], pcm...)

		case <-ticker.C:
			frames := make([]audio.TickFrame, 0, len(pending))
			for ssrc, pcm := range pending {
				frames = append(frames, audio.TickFrame{SSRC: ssrc, PCM: pcm})
				delete(pending, ssrc)
			}
			c.emit(audio.Event{
				Type:          audio.EventTick,
				Frames:        frames,
				SpeakingCount: len(frames),
			})
		}
	}
}

// handleSpeakingUpdate forwards Discord speaking updates as speaking-start
// events so the pipeline can map SSRC tags to user IDs.
func (c *Connection) handleSpeakingUpdate(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
	if vs == nil {
		return
	}
	c.emit(audio.Event{
		Type:   audio.EventSpeakingStart,
		SSRC:   uint32(vs.SSRC),
		UserID: vs.UserID,
	})
}

// sendOpus delivers one encoded Opus packet to Discord. Returns false when
// the connection is shutting down.
func (c *Connection) sendOpus(pkt []byte) bool {
	select {
	case c.vc.OpusSend <- pkt:
		return true
	case <-c.done:
		return false
	}
}

// setSpeaking sends a speaking notification to Discord, logging any errors.
func (c *Connection) setSpeaking(b bool) {
	if err := c.vc.Speaking(b); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", b, "error", err)
	}
}

// emit delivers ev to the registered handler, if any.
func (c *Connection) emit(ev audio.Event) {
	c.handlerMu.Lock()
	h := c.handler
	c.handlerMu.Unlock()
	if h != nil {
		h.HandleVoiceEvent(ev)
	}
}
