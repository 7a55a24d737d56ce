// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketHandler handles WebSocket upgrade requests. It accepts only GET,
// checks the Origin header against the configured allow-list, and registers
// the new Client with the hub, which starts its pumps.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     newOriginPolicy(hub.cfg.AllowedOrigins, hub.log).check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "err", err)
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)
		if !hub.Register(client) {
			client.log.Info("Hub is shutting down; closing new connection")
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			_ = conn.Close()
		}
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Room relay is running!")
}

// TestPageHandler serves an HTML page for trying the relay from a browser:
// pick a name, join a room, and send room or private messages.
func TestPageHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := fmt.Fprint(w, testPage); err != nil {
			hub.log.Warn("Error writing HTML response", "err", err)
		}
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Room Relay WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        #users { margin: 10px 0; color: #555; }
        input[type="text"], select {
            padding: 5px;
            margin-right: 10px;
        }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status {
            margin: 10px 0;
            padding: 5px;
            border-radius: 3px;
        }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Room Relay WebSocket Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
        <input type="text" id="nameInput" placeholder="Username">
        <button onclick="setUsername()">Set name</button>
    </div>
    <div>
        <select id="roomSelect"></select>
        <button onclick="joinRoom()">Join</button>
        <button onclick="leaveRoom()">Leave</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message...">
        <button onclick="sendMessage()">Send to room</button>
        <select id="userSelect"></select>
        <button onclick="sendPrivate()">Send privately</button>
    </div>

    <div id="users"></div>
    <div id="messages"></div>

    <script>
        let ws = null;
        let currentRoom = null;
        const messagesDiv = document.getElementById('messages');
        const usersDiv = document.getElementById('users');
        const roomSelect = document.getElementById('roomSelect');
        const userSelect = document.getElementById('userSelect');
        const messageInput = document.getElementById('messageInput');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.margin = '5px 0';
            line.style.color = color || 'gray';
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function send(event) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify(event));
            }
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function renderUsers(users) {
            usersDiv.textContent = 'Online: ' + users.map(u =>
                u.username + (u.currentRoom ? ' (' + u.currentRoom + ')' : '')).join(', ');
            userSelect.innerHTML = '';
            users.forEach(u => {
                const opt = document.createElement('option');
                opt.value = u.id;
                opt.textContent = u.username;
                userSelect.appendChild(opt);
            });
        }

        function handle(event) {
            switch (event.type) {
            case 'init':
                roomSelect.innerHTML = '';
                event.rooms.forEach(r => {
                    const opt = document.createElement('option');
                    opt.value = r;
                    opt.textContent = r;
                    roomSelect.appendChild(opt);
                });
                renderUsers(event.users);
                addLine('Welcome, ' + event.username);
                break;
            case 'roomJoined':
                currentRoom = event.room;
                addLine('Joined ' + event.room);
                break;
            case 'userJoined':
                addLine(event.username + ' joined ' + event.room);
                break;
            case 'userLeft':
                addLine(event.username + ' left ' + event.room);
                break;
            case 'userList':
                renderUsers(event.users);
                break;
            case 'message':
                addLine('[' + event.room + '] ' + event.username + ': ' + event.message, 'green');
                break;
            case 'privateMessage':
                if (event.to) {
                    addLine('(to ' + event.toUsername + ') ' + event.message, 'blue');
                } else {
                    addLine('(from ' + event.fromUsername + ') ' + event.message, 'purple');
                }
                break;
            case 'error':
                addLine('Error ' + event.code + ': ' + event.message, 'red');
                break;
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => { addLine('Connected'); updateStatus(true); };
            ws.onmessage = (e) => handle(JSON.parse(e.data));
            ws.onclose = () => { addLine('Connection closed'); updateStatus(false); ws = null; currentRoom = null; };
            ws.onerror = () => addLine('Connection error', 'red');
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function setUsername() {
            send({ type: 'setUsername', username: document.getElementById('nameInput').value });
        }

        function joinRoom() {
            send({ type: 'joinRoom', room: roomSelect.value });
        }

        function leaveRoom() {
            if (currentRoom) {
                send({ type: 'leaveRoom', room: currentRoom });
                currentRoom = null;
            }
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && currentRoom) {
                send({ type: 'message', room: currentRoom, message: text });
                messageInput.value = '';
            }
        }

        function sendPrivate() {
            const text = messageInput.value.trim();
            if (text && userSelect.value) {
                send({ type: 'privateMessage', toUserId: userSelect.value, message: text });
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
