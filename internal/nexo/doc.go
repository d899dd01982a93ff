// Package nexo models the terminal messaging protocol: the message
// header and typed payload variants, the secured-envelope wire shape,
// the canonical JSON codec, and the closed error taxonomy shared by the
// whole pipeline.
//
// The package is purely transforms over bytes and structs. Encryption
// lives in nexocrypto, the network exchange in transport.
package nexo
