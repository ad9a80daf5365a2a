package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	msgAuthHeaderMissing = "authorization header not found."
	msgInvalidLogin      = "username or password is invalid."
	msgContentType       = "Content-Type header missing."
	msgFileName          = "filename was not found."
	msgBadMetadata       = "metadata is not valid JSON."
	msgBadBody           = "invalid request body."
	msgTooLarge          = "upload is too large."
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusMessage struct {
	status  int
	message string
}

// errorTable is the only place kinds become HTTP statuses and client
// messages.
var errorTable = map[common.Kind]statusMessage{
	common.KindInvalidCredential:      {http.StatusUnauthorized, "invalid credential"},
	common.KindUserInactive:           {http.StatusUnauthorized, "user inactive"},
	common.KindAccountSuspended:       {http.StatusUnauthorized, "account suspended"},
	common.KindInvalidSessionToken:    {http.StatusUnauthorized, "invalid session token."},
	common.KindSessionExpired:         {http.StatusUnauthorized, "session token has expired."},
	common.KindInvalidRefreshToken:    {http.StatusUnauthorized, "invalid refresh token."},
	common.KindRefreshTokenExpired:    {http.StatusUnauthorized, "refresh token has expired."},
	common.KindSessionCreationFailed:  {http.StatusInternalServerError, "failed to create session."},
	common.KindConnectionFailed:       {http.StatusExpectationFailed, "Database error"},
	common.KindQueryFailed:            {http.StatusExpectationFailed, "Database error"},
	common.KindMalformedInput:         {http.StatusBadRequest, "malformed input."},
	common.KindMissingExtension:       {http.StatusBadRequest, "extension was not found."},
	common.KindCountMismatch:          {http.StatusBadRequest, "metadata count does not match file count."},
	common.KindInvalidIdentifier:      {http.StatusBadRequest, "invalid identifier."},
	common.KindWriteFailed:            {http.StatusInternalServerError, "Failed to save uploaded file."},
	common.KindPathTraversalRejected:  {http.StatusBadRequest, "invalid path."},
	common.KindNotFound:               {http.StatusNotFound, "not found."},
	common.KindMetadataMissing:        {http.StatusNotFound, "metadata not found."},
	common.KindRelationalInsertFailed: {http.StatusInternalServerError, "Failed to store post metadata in database."},
	common.KindDocumentInsertFailed:   {http.StatusInternalServerError, "Failed to store post in MongoDB."},
	common.KindConflict:               {http.StatusConflict, "Username already taken"},
	common.KindRateLimited:            {http.StatusTooManyRequests, "too many login attempts."},
	common.KindInternal:               {http.StatusInternalServerError, "internal server error."},
}

// statusFor returns the status and client message for err. Validation
// errors carry their own message.
func statusFor(err error) (int, string) {
	kind := common.KindOf(err)
	sm, ok := errorTable[kind]
	if !ok {
		sm = errorTable[common.KindInternal]
	}
	if kind == common.KindMalformedInput {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			return sm.status, ve.Message
		}
	}
	return sm.status, sm.message
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusExpectationFailed {
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		h.logger.Debug(c.Request.Context(), "request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func writeMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}
