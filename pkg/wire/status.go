package wire

// ResponseCode is the response code carried in a message header.
type ResponseCode uint16

const (
	// ResponseNone is used on requests and unsolicited notifications.
	ResponseNone ResponseCode = 0

	// ResponseOK indicates the camera accepted the request.
	ResponseOK ResponseCode = 200

	// ResponseBadRequest indicates the camera could not parse the request.
	ResponseBadRequest ResponseCode = 400

	// ResponseUnauthorized indicates the session is not logged in.
	ResponseUnauthorized ResponseCode = 401

	// ResponseUnsupported indicates the camera lacks the ability.
	ResponseUnsupported ResponseCode = 404

	// ResponseBusy indicates the camera refused because it is busy.
	ResponseBusy ResponseCode = 409
)

// String returns the response code name.
func (c ResponseCode) String() string {
	switch c {
	case ResponseNone:
		return "NONE"
	case ResponseOK:
		return "OK"
	case ResponseBadRequest:
		return "BAD_REQUEST"
	case ResponseUnauthorized:
		return "UNAUTHORIZED"
	case ResponseUnsupported:
		return "UNSUPPORTED"
	case ResponseBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the code indicates success.
func (c ResponseCode) IsSuccess() bool {
	return c == ResponseOK
}
