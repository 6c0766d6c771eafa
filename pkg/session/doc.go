/*
Package session hosts many transitioners in one process.

Each session owns a document, a platform and a vista.Transitioner. The Manager
serializes every operation on a session behind a ref-counted local mutex and,
when configured, a distributed lock, so that replicas sharing a Redis never
drive the same session at once. Completion events fan out to in-process
subscribers and to an optional ports.Notifier; finished transitions are
appended to an optional ports.Journal.
*/
package session
