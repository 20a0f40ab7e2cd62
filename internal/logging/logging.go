/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logging holds the shared structured logger.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Fields is an alias of logrus fields.
type Fields = logrus.Fields

// nolint: gochecknoglobals
var logger = logrus.NewEntry(logrus.New())

// SetLevel sets level of the shared logger.
func SetLevel(l logrus.Level) {
	logger.Logger.SetLevel(l)
}

// Entry returns the shared logger entry.
func Entry() *logrus.Entry {
	return logger
}

// Module returns an entry tagged with the module name.
func Module(name string) *logrus.Entry {
	return logger.WithField("module", name)
}

// WithError returns an entry with the error attached.
func WithError(e error) *logrus.Entry {
	return logger.WithError(e)
}
