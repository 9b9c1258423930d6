// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used within the game handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided player token was invalid or expired.
	InvalidSeatError      = 3002 // Token seat does not exist in the game.
	InvalidGameIDError    = 3003 // Token was issued for a different game.
)
