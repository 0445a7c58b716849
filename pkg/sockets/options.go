package sockets

import "errors"

var ErrClosed = errors.New("closed connection")

func WithPingIntervalSec(p int) func(*Conn) {
	return func(c *Conn) {
		c.pingIntervalSecs = p
	}
}

func WithPingMsg(msg []byte) func(*Conn) {
	return func(c *Conn) {
		c.pingMsg = msg
	}
}

func InsecureSkipVerify() func(*Conn) {
	return func(c *Conn) {
		c.sslSkipVerify = true
	}
}

func OnConnected(f func(Connection)) func(*Conn) {
	return func(c *Conn) {
		c.onConnected = f
	}
}

func OnMessage(f func([]byte, Connection)) func(*Conn) {
	return func(c *Conn) {
		c.onMessage = f
	}
}

func OnError(f func(error)) func(*Conn) {
	return func(c *Conn) {
		c.onError = f
	}
}
