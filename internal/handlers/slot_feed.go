package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 90 * time.Second
	feedPingPeriod = 30 * time.Second
)

var slotUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     feedOriginAllowed,
}

func feedOriginAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(deps.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range deps.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// SlotFeed streams slot.booked and slot.released events of one doctor so the
// booking page can grey out times as they are taken.
// GET /ws/slots?docId=<doctor id>
func SlotFeed(w http.ResponseWriter, r *http.Request) {
	doctorID := strings.TrimSpace(r.URL.Query().Get("docId"))
	if doctorID == "" {
		writeFail(w, http.StatusBadRequest, "docId is required")
		return
	}

	ctx, cancel := requestContext(r)
	_, err := deps.Store.FindDoctor(ctx, doctorID)
	cancel()
	if err != nil {
		writeError(w, r, notFoundOr(err, "Doctor not found"))
		return
	}

	conn, err := slotUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := deps.Hub.Subscribe(doctorID)
	defer deps.Hub.Unsubscribe(sub)

	// Reader: the client sends nothing useful, but reading is needed to
	// notice disconnects and to process pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt := <-sub.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		}
	}
}
