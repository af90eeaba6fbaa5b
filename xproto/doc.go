/*------------------------------------------------------------------
 *
 * Package: xproto
 *
 * Purpose: Reliable, NACK-driven chunked transfer over an MTU-bounded,
 *		lossy, unidirectional message transport (BLE GATT notify/write).
 *
 * Description: Two symmetric state machines live here: ReadX (server,
 *		sender of a large blob) and WriteX (server, receiver of one).
 *		Both are built on the same wire primitives - a 3-byte chunk
 *		header, a dense completion bitmask, and a loss list encoded
 *		as concatenated big-endian u16 sequence numbers.
 *
 *		Everything in this package is single-threaded and cooperative:
 *		no goroutines are spawned, and the only blocking points are
 *		calls into the caller-supplied Transport.
 *
 *------------------------------------------------------------------*/
package xproto
