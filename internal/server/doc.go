// Package server implements the HTTP and WebSocket transport of the room chat
// service.
//
// The implementation is organized into specialized files for configuration, hub
// management, clients, routing, and HTTP handlers. Room membership, chats and
// message routing live in the room, chat and dispatch packages; this package
// only moves frames between them and the network.
package server
