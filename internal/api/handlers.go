package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chathub/internal/database"
	"github.com/npezzotti/go-chathub/internal/hub"
	"github.com/npezzotti/go-chathub/internal/types"
	"github.com/teris-io/shortid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateDmThreadRequest struct {
	UserId int `json:"user_id"`
}

func (s *ChatHubApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatHubApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check failed:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatHubApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:           newUser.Id,
		Username:     newUser.Username,
		EmailAddress: newUser.EmailAddress,
		Avatar:       newUser.Avatar,
		Role:         newUser.Role,
		Status:       types.Status(newUser.Status),
	})
}

func (s *ChatHubApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(req.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, req.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultExp)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultExp))
	s.writeJson(w, http.StatusOK, types.User{
		Id:           dbUser.Id,
		Username:     dbUser.Username,
		EmailAddress: dbUser.EmailAddress,
		Avatar:       dbUser.Avatar,
		Role:         dbUser.Role,
		Status:       types.Status(dbUser.Status),
	})
}

func (s *ChatHubApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
		Avatar:       user.Avatar,
		Role:         user.Role,
		Status:       types.Status(user.Status),
	})
}

func (s *ChatHubApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", 0))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatHubApp) listUsers(w http.ResponseWriter, r *http.Request) {
	dbUsers, err := s.db.ListAccounts()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, len(dbUsers))
	for i, u := range dbUsers {
		status := types.Status(u.Status)
		// a live connection always wins over the stored status
		if s.hub.Registry().StatusOf(u.Id) == types.StatusOnline {
			status = types.StatusOnline
		}
		users[i] = types.User{
			Id:       u.Id,
			Username: u.Username,
			Avatar:   u.Avatar,
			Role:     u.Role,
			Status:   status,
		}
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ChatHubApp) updateStatus(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// online/offline are owned by the hub's presence registry
	switch types.Status(req.Status) {
	case types.StatusAway, types.StatusBusy:
	default:
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.UpdateAccountStatus(userId, req.Status); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatHubApp) listChannels(w http.ResponseWriter, r *http.Request) {
	dbChannels, err := s.db.ListChannels()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	channels := make([]types.Channel, len(dbChannels))
	for i, ch := range dbChannels {
		channels[i] = types.Channel{
			Id:          ch.Id,
			ExternalId:  ch.ExternalId,
			Name:        ch.Name,
			Description: ch.Description,
			CreatedAt:   ch.CreatedAt,
		}
	}

	s.writeJson(w, http.StatusOK, channels)
}

func (s *ChatHubApp) createChannel(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId, err := shortid.Generate()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	ch, err := s.db.CreateChannel(database.CreateChannelParams{
		ExternalId:  externalId,
		Name:        req.Name,
		Description: req.Description,
		OwnerId:     userId,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Channel{
		Id:          ch.Id,
		ExternalId:  ch.ExternalId,
		Name:        ch.Name,
		Description: ch.Description,
		OwnerId:     ch.OwnerId,
	})
}

func (s *ChatHubApp) listDmThreads(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbThreads, err := s.db.ListDmThreadsForAccount(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	threads := make([]types.DmThread, len(dbThreads))
	for i, dm := range dbThreads {
		threads[i] = types.DmThread{
			Id:         dm.Id,
			ExternalId: dm.ExternalId,
			UserOneId:  dm.UserOneId,
			UserTwoId:  dm.UserTwoId,
			CreatedAt:  dm.CreatedAt,
		}
	}

	s.writeJson(w, http.StatusOK, threads)
}

func (s *ChatHubApp) createDmThread(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateDmThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == 0 || req.UserId == userId {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userOne, userTwo := userId, req.UserId
	if userTwo < userOne {
		userOne, userTwo = userTwo, userOne
	}

	dm, err := s.db.GetDmThreadByParticipants(userOne, userTwo)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		externalId, err := shortid.Generate()
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		dm, err = s.db.CreateDmThread(database.CreateDmThreadParams{
			ExternalId: externalId,
			UserOneId:  userOne,
			UserTwoId:  userTwo,
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	s.writeJson(w, http.StatusOK, types.DmThread{
		Id:         dm.Id,
		ExternalId: dm.ExternalId,
		UserOneId:  dm.UserOneId,
		UserTwoId:  dm.UserTwoId,
		CreatedAt:  dm.CreatedAt,
	})
}

func (s *ChatHubApp) getMessages(w http.ResponseWriter, r *http.Request) {
	params := database.GetMessagesParams{
		ChannelId: r.URL.Query().Get("channel"),
		DmId:      r.URL.Query().Get("dm"),
	}
	if (params.ChannelId == "") == (params.DmId == "") {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if before := r.URL.Query().Get("before"); before != "" {
		n, err := strconv.Atoi(before)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		params.Before = n
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		params.Limit = n
	}

	dbMessages, err := s.db.GetMessages(params)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, len(dbMessages))
	for i, m := range dbMessages {
		messages[i] = types.Message{
			Id:        m.Id,
			ChannelId: m.ChannelId,
			DmId:      m.DmId,
			UserId:    m.UserId,
			Username:  m.Username,
			Avatar:    m.Avatar,
			Role:      m.Role,
			Content:   m.Content,
			Kind:      m.Kind,
			Timestamp: m.CreatedAt,
		}
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ChatHubApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := hub.NewClient(conn, s.hub, s.log)

	s.hub.RegisterClient(client)
	go client.Write()
	go client.Read()
}
