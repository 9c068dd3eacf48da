package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/commands"
	"github.com/vancomm/minesweeper/internal/session"
)

type wsReply struct {
	Game  *GameDTO `json:"game,omitempty"`
	Error string   `json:"error,omitempty"`
}

// ConnectWS upgrades the connection and runs the command protocol of
// package commands against the session until the client goes away.
func (g GameHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := g.sessions.Get(id); err != nil {
		g.sessionError(w, err)
		return
	}

	conn, err := g.ws.Upgrader.Upgrade(w, r, nil) // headers sent here
	if err != nil {
		g.log.WithError(err).Error("unable to upgrade")
		return
	}
	defer conn.Close()

	log := g.log.WithField("session", id)
	log.Debug("established WS connection")

	err = g.runGameLoop(r.Context(), conn, id, log)
	if err != nil && !websocket.IsCloseError(err,
		websocket.CloseNormalClosure, websocket.CloseGoingAway,
	) {
		log.WithError(err).Warn("error in ws loop")
	}
}

func (g GameHandler) runGameLoop(
	ctx context.Context, conn *websocket.Conn, id string, log logrus.FieldLogger,
) error {
	for {
		if g.ws.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(g.ws.ReadTimeout))
		}
		mt, buf, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage {
			return conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "text only"))
		}
		log.Debug("> ", string(buf))

		var reply wsReply
		err = g.sessions.Update(ctx, id, func(s *session.Session) error {
			_, err := commands.ExecuteAll(s.Game, string(buf))
			s.Game.RevealAllMines()
			dto := NewGameDTO(s)
			reply.Game = &dto
			return err
		})
		if errors.Is(err, session.ErrNotFound) {
			return conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session expired"))
		}
		if err != nil {
			reply.Error = err.Error()
		}

		if err := conn.WriteJSON(reply); err != nil {
			return err
		}
	}
}
