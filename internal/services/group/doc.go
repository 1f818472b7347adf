// Package group exposes the group encryption contract: creation, member
// admission and removal via key packages, size-status queries, and the
// performance optimization pass. Membership changes on one group are totally
// ordered; separate groups proceed in parallel.
package group
