package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func isClosed(c *Client) bool {
	select {
	case <-c.closeChan:
		return true
	default:
		return false
	}
}

func TestRoomKey_OrderIndependent(t *testing.T) {
	a := "3f1c2d9e-0000-0000-0000-000000000001"
	b := "3f1c2d9e-0000-0000-0000-000000000002"

	assert.Equal(t, RoomKey(a, b), RoomKey(b, a))
	assert.NotEqual(t, RoomKey(a, b), RoomKey(a, a))
}

func TestManager_RegisterAndSend(t *testing.T) {
	m := NewManager()
	client := NewClient("user-1", nil, m)
	m.Register(client)

	require.True(t, m.IsOnline("user-1"))
	assert.False(t, m.SendToUser("user-2", Event{Type: EventNewNotification}))

	ok := m.SendToUser("user-1", Event{Type: EventNewNotification})
	require.True(t, ok)

	select {
	case data := <-client.send:
		assert.Contains(t, string(data), string(EventNewNotification))
	case <-time.After(time.Second):
		t.Fatal("событие не дошло до соединения")
	}
}

func TestManager_ReconnectSupersedesOldConnection(t *testing.T) {
	m := NewManager()
	first := NewClient("user-1", nil, m)
	m.Register(first)

	second := NewClient("user-1", nil, m)
	m.Register(second)

	// Старое соединение закрыто, в реестре ровно одна запись
	assert.True(t, isClosed(first))
	require.True(t, m.IsOnline("user-1"))
	assert.Len(t, m.OnlineUsers(), 1)

	// Push получает только новое соединение
	drain(second)
	require.True(t, m.SendToUser("user-1", Event{Type: EventNewNotification}))
	select {
	case <-second.send:
	case <-time.After(time.Second):
		t.Fatal("новое соединение не получило событие")
	}
	select {
	case data := <-first.send:
		t.Fatalf("старое соединение не должно получать события: %s", data)
	default:
	}
}

func TestManager_StaleUnregisterKeepsNewConnection(t *testing.T) {
	m := NewManager()
	first := NewClient("user-1", nil, m)
	m.Register(first)
	second := NewClient("user-1", nil, m)
	m.Register(second)

	// Отложенный Unregister старого соединения приходит после переподключения
	m.Unregister(first)

	assert.True(t, m.IsOnline("user-1"))
}

func TestManager_Unregister(t *testing.T) {
	m := NewManager()
	client := NewClient("user-1", nil, m)
	m.Register(client)

	m.Unregister(client)

	assert.False(t, m.IsOnline("user-1"))
	assert.False(t, m.SendToUser("user-1", Event{Type: EventNewNotification}))
}

func TestManager_RoomBroadcastExcludesSender(t *testing.T) {
	m := NewManager()
	sender := NewClient("user-1", nil, m)
	recipient := NewClient("user-2", nil, m)
	bystander := NewClient("user-3", nil, m)
	m.Register(sender)
	m.Register(recipient)
	m.Register(bystander)

	roomKey := RoomKey("user-1", "user-2")
	m.JoinRoom(roomKey, sender)
	m.JoinRoom(roomKey, recipient)

	drain(sender)
	drain(recipient)
	drain(bystander)

	m.SendToRoom(roomKey, Event{Type: EventNewMessage, RoomKey: roomKey}, "user-1")

	select {
	case data := <-recipient.send:
		assert.Contains(t, string(data), string(EventNewMessage))
	case <-time.After(time.Second):
		t.Fatal("участник комнаты не получил сообщение")
	}
	select {
	case <-sender.send:
		t.Fatal("отправитель не должен получать собственное сообщение")
	default:
	}
	select {
	case <-bystander.send:
		t.Fatal("пользователь вне комнаты не должен получать сообщение")
	default:
	}
}

func TestManager_PresenceBroadcast(t *testing.T) {
	m := NewManager()
	watcher := NewClient("user-1", nil, m)
	m.Register(watcher)
	drain(watcher)

	joined := NewClient("user-2", nil, m)
	m.Register(joined)

	select {
	case data := <-watcher.send:
		assert.Contains(t, string(data), string(EventUserOnline))
	case <-time.After(time.Second):
		t.Fatal("событие присутствия не доставлено")
	}

	drain(watcher)
	m.Unregister(joined)

	select {
	case data := <-watcher.send:
		assert.Contains(t, string(data), string(EventUserOffline))
	case <-time.After(time.Second):
		t.Fatal("событие отключения не доставлено")
	}
}
