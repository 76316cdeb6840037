package database

import (
	"database/sql"
	"fmt"
	"time"
)

func (db *PgChatHubRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, avatar, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, username, email, avatar, role, status",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		params.Avatar,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.Avatar,
		&u.Role,
		&u.Status,
	)

	return u, err
}

func (db *PgChatHubRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, avatar, role, status FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.Avatar,
		&user.Role,
		&user.Status,
	)

	return user, err
}

func (db *PgChatHubRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, avatar, role, status FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.Avatar,
		&user.Role,
		&user.Status,
	)

	return user, err
}

func (db *PgChatHubRepository) ListAccounts() ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT id, username, avatar, role, status FROM accounts ORDER BY username",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Id, &u.Username, &u.Avatar, &u.Role, &u.Status); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgChatHubRepository) UpdateAccountStatus(accountId int, status string) error {
	_, err := db.conn.Exec(
		"UPDATE accounts SET status = $2, updated_at = $3 WHERE id = $1",
		accountId,
		status,
		time.Now().UTC(),
	)

	return err
}

func (db *PgChatHubRepository) CreateChannel(params CreateChannelParams) (Channel, error) {
	res := db.conn.QueryRow(
		"INSERT INTO channels (external_id, name, description, owner_id, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, external_id, name, description, owner_id",
		params.ExternalId,
		params.Name,
		params.Description,
		params.OwnerId,
		time.Now().UTC(),
	)

	var ch Channel
	err := res.Scan(
		&ch.Id,
		&ch.ExternalId,
		&ch.Name,
		&ch.Description,
		&ch.OwnerId,
	)

	return ch, err
}

func (db *PgChatHubRepository) GetChannelByExternalId(externalId string) (Channel, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, description, created_at FROM channels "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var ch Channel
	err := row.Scan(
		&ch.Id,
		&ch.ExternalId,
		&ch.Name,
		&ch.Description,
		&ch.CreatedAt,
	)

	return ch, err
}

func (db *PgChatHubRepository) ListChannels() ([]Channel, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, name, description, created_at FROM channels ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		if err := rows.Scan(&ch.Id, &ch.ExternalId, &ch.Name, &ch.Description, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

func (db *PgChatHubRepository) CreateDmThread(params CreateDmThreadParams) (DmThread, error) {
	res := db.conn.QueryRow(
		"INSERT INTO dm_threads (external_id, user_one_id, user_two_id, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, external_id, user_one_id, user_two_id",
		params.ExternalId,
		params.UserOneId,
		params.UserTwoId,
		time.Now().UTC(),
	)

	var dm DmThread
	err := res.Scan(
		&dm.Id,
		&dm.ExternalId,
		&dm.UserOneId,
		&dm.UserTwoId,
	)

	return dm, err
}

func (db *PgChatHubRepository) GetDmThreadByExternalId(externalId string) (DmThread, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, user_one_id, user_two_id, created_at FROM dm_threads "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var dm DmThread
	err := row.Scan(
		&dm.Id,
		&dm.ExternalId,
		&dm.UserOneId,
		&dm.UserTwoId,
		&dm.CreatedAt,
	)

	return dm, err
}

func (db *PgChatHubRepository) GetDmThreadByParticipants(userOneId, userTwoId int) (DmThread, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, user_one_id, user_two_id, created_at FROM dm_threads "+
			"WHERE user_one_id = $1 AND user_two_id = $2 LIMIT 1",
		userOneId,
		userTwoId,
	)

	var dm DmThread
	err := row.Scan(
		&dm.Id,
		&dm.ExternalId,
		&dm.UserOneId,
		&dm.UserTwoId,
		&dm.CreatedAt,
	)

	return dm, err
}

func (db *PgChatHubRepository) ListDmThreadsForAccount(accountId int) ([]DmThread, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, user_one_id, user_two_id, created_at FROM dm_threads "+
			"WHERE user_one_id = $1 OR user_two_id = $1 ORDER BY created_at",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []DmThread
	for rows.Next() {
		var dm DmThread
		if err := rows.Scan(&dm.Id, &dm.ExternalId, &dm.UserOneId, &dm.UserTwoId, &dm.CreatedAt); err != nil {
			return nil, err
		}
		threads = append(threads, dm)
	}

	return threads, rows.Err()
}

// CreateMessage stores a message and returns it enriched with the
// server-issued id, timestamp and the author's display fields.
func (db *PgChatHubRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	var channelId, dmId sql.NullInt64

	if params.ChannelId != "" {
		ch, err := db.GetChannelByExternalId(params.ChannelId)
		if err != nil {
			return Message{}, err
		}
		channelId = sql.NullInt64{Int64: int64(ch.Id), Valid: true}
	}
	if params.DmId != "" {
		dm, err := db.GetDmThreadByExternalId(params.DmId)
		if err != nil {
			return Message{}, err
		}
		dmId = sql.NullInt64{Int64: int64(dm.Id), Valid: true}
	}

	var msgId int
	if err := db.conn.QueryRow(
		"INSERT INTO messages (channel_id, dm_id, user_id, content, kind, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		channelId,
		dmId,
		params.UserId,
		params.Content,
		params.Kind,
		time.Now().UTC(),
	).Scan(&msgId); err != nil {
		return Message{}, err
	}

	row := db.conn.QueryRow(
		"SELECT m.id, m.user_id, m.content, m.kind, m.created_at, a.username, a.avatar, a.role "+
			"FROM messages m INNER JOIN accounts a ON m.user_id = a.id "+
			"WHERE m.id = $1 LIMIT 1",
		msgId,
	)

	var msg Message
	if err := row.Scan(
		&msg.Id,
		&msg.UserId,
		&msg.Content,
		&msg.Kind,
		&msg.CreatedAt,
		&msg.Username,
		&msg.Avatar,
		&msg.Role,
	); err != nil {
		return Message{}, err
	}

	msg.ChannelId = params.ChannelId
	msg.DmId = params.DmId

	return msg, nil
}

func (db *PgChatHubRepository) GetMessages(params GetMessagesParams) ([]Message, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT m.id, m.user_id, m.content, m.kind, m.created_at, a.username, a.avatar, a.role " +
		"FROM messages m INNER JOIN accounts a ON m.user_id = a.id "
	var args []any

	switch {
	case params.ChannelId != "":
		ch, err := db.GetChannelByExternalId(params.ChannelId)
		if err != nil {
			return nil, err
		}
		query += "WHERE m.channel_id = $1 "
		args = append(args, ch.Id)
	case params.DmId != "":
		dm, err := db.GetDmThreadByExternalId(params.DmId)
		if err != nil {
			return nil, err
		}
		query += "WHERE m.dm_id = $1 "
		args = append(args, dm.Id)
	default:
		return nil, sql.ErrNoRows
	}

	if params.Before > 0 {
		query += "AND m.id < $2 "
		args = append(args, params.Before)
	}

	query += fmt.Sprintf("ORDER BY m.id DESC LIMIT $%d", len(args)+1)

	rows, err := db.conn.Query(query, append(args, limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Id, &m.UserId, &m.Content, &m.Kind, &m.CreatedAt, &m.Username, &m.Avatar, &m.Role); err != nil {
			return nil, err
		}
		m.ChannelId = params.ChannelId
		m.DmId = params.DmId
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
