// Package protocol frames partition requests and responses.
//
// Request frame:
//
//	[uint64 requestID][uint8 flags][body]
//	body = [uint8 op][uint8 elemType][partition.Key][payload]
//
// Response frame:
//
//	[uint64 requestID][uint8 flags][uint8 status][body]
//	StatusOK:    body = result frame (see package result)
//	StatusError: body = [uint8 code][string message]
//
// The low two bits of flags carry the codec.Compression applied to body.
// A compressed body is a codec block ([uint32 rawLen][uint32 compLen][data]).
// The request id is never compressed so a transport can match replies
// without decoding the body.
package protocol
