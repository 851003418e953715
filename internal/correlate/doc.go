// Package correlate decides which new requests are worth a notification.
//
// Two rules apply:
//
//   - Service requests with the same identity whose timestamps fall within a
//     window of the group's first member are one submission (the site form
//     inserts one row per uploaded file). They are merged into a Group.
//   - A contact request whose (name, phone) was seen on either stream within
//     the suppression window is a by-product of the same visitor action and
//     is dropped.
//
// The streams share no foreign key; identity plus time is the only signal.
// All state here is owned by the single poll loop and is not safe for
// concurrent use.
package correlate
