// Package x3dh implements the Extended Triple Diffie-Hellman key agreement
// used to bootstrap a pairwise session.
//
// The initiator combines DH(IK_A, SPK_B), DH(EK_A, IK_B) and DH(EK_A, SPK_B),
// plus DH(EK_A, OPK_B) when a one-time prekey is available, then derives the
// initial root key with a single labelled HKDF step. The identity-key legs
// give mutual authentication; the one-time prekey leg gives per-session
// forward secrecy even if the signed prekey later leaks.
package x3dh
