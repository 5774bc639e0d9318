/*
Package session manages the session directories that back pairing attempts.

A session directory holds the credentials artifact (creds.json) and the key
material written by the protocol client. Store creates and removes directories;
Manager hands out scoped leases so that each directory has exactly one live
owner, optionally coordinated across replicas through a distributed locker.
*/
package session
