// Package session guards uploads behind credential validity. The engine
// only asks whether the session is valid and whether a refresh succeeded;
// token handling stays inside this package.
package session
