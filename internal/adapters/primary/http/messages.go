package http

import (
	"encoding/json"
	"time"

	"github.com/fredcamaral/slidectl/internal/domain/entities"
)

// Inbound message types
const (
	MsgAuth            = "auth"
	MsgPing            = "ping"
	MsgStatus          = "status"
	MsgListFiles       = "listFiles"
	MsgOpenFile        = "openFile"
	MsgNextFile        = "nextFile"
	MsgPrevFile        = "prevFile"
	MsgOpenFileByIndex = "openFileByIndex"
	MsgSlideList       = "slideList"
	MsgStart           = "start"
	MsgStop            = "stop"
	MsgClose           = "close"
	MsgNext            = "next"
	MsgPrev            = "prev"
)

// Outbound-only message types
const (
	MsgHandshake     = "handshake"
	MsgAuthResult    = "authResult"
	MsgFileList      = "fileList"
	MsgFileOpened    = "fileOpened"
	MsgCommandResult = "commandResult"
	MsgPong          = "pong"
	MsgFolderChanged = "folderChanged"
	MsgTokenChanged  = "tokenChanged"
	MsgError         = "error"
)

// ClientMessage is a message received from a control surface
type ClientMessage struct {
	Type     string  `json:"type"`
	Token    *string `json:"token,omitempty"`
	FilePath *string `json:"filePath,omitempty"`
	Index    *int    `json:"index,omitempty"`
}

type handshakeMessage struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	AuthRequired bool   `json:"authRequired"`
}

type authResultMessage struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type statusMessage struct {
	Type string `json:"type"`
	entities.Status
}

type fileListMessage struct {
	Type  string                      `json:"type"`
	Files []entities.PresentationFile `json:"files"`
}

type fileOpenedMessage struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

type commandResultMessage struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

type pongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type folderChangedMessage struct {
	Type   string                      `json:"type"`
	Folder string                      `json:"folder"`
	Files  []entities.PresentationFile `json:"files"`
}

type tokenChangedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type slideListMessage struct {
	Type   string                  `json:"type"`
	Slides []entities.SlideSummary `json:"slides"`
}

func newHandshake() handshakeMessage {
	return handshakeMessage{Type: MsgHandshake, Message: "Connected to slidectl. Send auth with your token.", AuthRequired: true}
}

func newAuthResult(success bool, message string) authResultMessage {
	return authResultMessage{Type: MsgAuthResult, Success: success, Message: message}
}

func newStatus(status entities.Status) statusMessage {
	return statusMessage{Type: MsgStatus, Status: status}
}

func newFileList(files []entities.PresentationFile) fileListMessage {
	if files == nil {
		files = []entities.PresentationFile{}
	}
	return fileListMessage{Type: MsgFileList, Files: files}
}

func newFileOpened(result entities.FileOpenResult) fileOpenedMessage {
	return fileOpenedMessage{Type: MsgFileOpened, Success: result.Success, Message: result.Message, FilePath: result.FilePath}
}

func newCommandResult(command string) commandResultMessage {
	return commandResultMessage{Type: MsgCommandResult, Command: command, Success: true}
}

func newPong(now time.Time) pongMessage {
	return pongMessage{Type: MsgPong, Timestamp: now.UnixMilli()}
}

func newFolderChanged(folder string, files []entities.PresentationFile) folderChangedMessage {
	if files == nil {
		files = []entities.PresentationFile{}
	}
	return folderChangedMessage{Type: MsgFolderChanged, Folder: folder, Files: files}
}

func newTokenChanged() tokenChangedMessage {
	return tokenChangedMessage{Type: MsgTokenChanged, Message: "Access token was rotated. Reconnect with the new token."}
}

func newError(message string) errorMessage {
	return errorMessage{Type: MsgError, Message: message}
}

func newSlideList(slides []entities.SlideSummary) slideListMessage {
	if slides == nil {
		slides = []entities.SlideSummary{}
	}
	return slideListMessage{Type: MsgSlideList, Slides: slides}
}

// mustEncode marshals an outbound message. Every outbound type is a plain struct,
// so failure means a programming error.
func mustEncode(msg any) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		panic("encoding outbound message: " + err.Error())
	}
	return data
}
