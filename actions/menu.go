// Package actions implements the editor menu whose entries are paid for
// through a metered session.
package actions

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vitwit/meter"
	"github.com/vitwit/meter/logger"
	"github.com/vitwit/meter/types"
	"github.com/vitwit/meter/utils"
)

const defaultFile = "default"

var (
	// ErrDefaultFile is returned by Save while the reserved file is open.
	ErrDefaultFile = utils.ErrFilenameReserved
	// ErrFileExists is returned by SaveAs for a name already in the store.
	ErrFileExists = errors.New("Filename already exists")
	// ErrEmailUnsupported is returned by Email on clients without a mailer.
	ErrEmailUnsupported = errors.New("This functionality works on Android/iOS devices")
)

// Deps are the collaborators of a Menu. Printer and Mailer may be nil, in
// which case Print fails after payment and Email is unsupported.
type Deps struct {
	Store    Store
	Document Document
	Printer  Printer
	Mailer   Mailer
	Notifier Notifier
	Logger   logger.Logger

	// AppName is used in the email subject.
	AppName string
	// Recipients of Email.
	Recipients []string
	// OnSelect is called with the file name after a successful save.
	OnSelect func(name string)
}

// Menu is the set of paid editor actions for one open document. Every call
// emits exactly one Notice.
type Menu struct {
	gate Gate
	deps Deps
	now  func() time.Time

	mu       sync.RWMutex
	file     string
	billType int
}

func NewMenu(gate Gate, file string, billType int, deps Deps) *Menu {
	if deps.Logger == nil {
		deps.Logger = logger.NoopLogger{}
	}
	if deps.Notifier == nil {
		deps.Notifier = NotifierFunc(func(Notice) {})
	}
	return &Menu{
		gate:     gate,
		deps:     deps,
		now:      time.Now,
		file:     file,
		billType: billType,
	}
}

// File returns the name of the open file.
func (m *Menu) File() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file
}

// Select switches the menu to another open file.
func (m *Menu) Select(name string, billType int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.file, m.billType = name, billType
}

func (m *Menu) current() (string, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.file, m.billType
}

func (m *Menu) notify(n Notice) {
	fields := map[string]any{
		"action": n.Kind.String(),
		"level":  n.Level.String(),
	}
	if n.Err != nil {
		fields["error"] = n.Err.Error()
	}
	m.deps.Logger.Info(n.Message, fields)
	m.deps.Notifier.Notify(n)
}

// fail emits a notice for an error raised before the gate was entered.
func (m *Menu) fail(kind types.ActionKind, err error) error {
	m.notify(Notice{Kind: kind, Level: LevelError, Title: titles[kind], Message: err.Error(), Err: err})
	return err
}

func (m *Menu) run(ctx context.Context, kind types.ActionKind, success string, effect meter.Effect) error {
	auth, err := m.gate.Run(ctx, kind, effect)
	if err != nil {
		m.notify(Describe(kind, err))
		return err
	}
	m.notify(Succeeded(kind, auth, success))
	return nil
}

func (m *Menu) selected(name string) {
	if m.deps.OnSelect != nil {
		m.deps.OnSelect(name)
	}
}

func (m *Menu) content() (string, error) {
	raw, err := m.deps.Document.Content()
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return url.PathEscape(raw), nil
}

// Save pays for and overwrites the open file, keeping its creation time.
// The reserved default file is refused before any payment.
func (m *Menu) Save(ctx context.Context) error {
	name, billType := m.current()
	if name == defaultFile {
		return m.fail(types.ActionSave, ErrDefaultFile)
	}

	return m.run(ctx, types.ActionSave, fmt.Sprintf("File %s updated successfully", name), func(ctx context.Context, _ *meter.Authorization) error {
		content, err := m.content()
		if err != nil {
			return err
		}

		now := m.now()
		created := now
		stored, err := m.deps.Store.GetFile(ctx, name)
		switch {
		case err == nil:
			created = stored.Created
		case !errors.Is(err, ErrFileNotFound):
			return fmt.Errorf("load %s: %w", name, err)
		}

		file := &File{Created: created, Modified: now, Content: content, Name: name, BillType: billType}
		if err := m.deps.Store.SaveFile(ctx, file); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		m.selected(name)
		return nil
	})
}

// SaveAs pays for and stores the open document under a new name. The name
// is validated and checked against the store before any payment.
func (m *Menu) SaveAs(ctx context.Context, filename string) error {
	if err := utils.ValidateFilename(filename); err != nil {
		return m.fail(types.ActionSaveAs, err)
	}
	name := strings.TrimSpace(filename)

	exists, err := m.deps.Store.Exists(ctx, name)
	if err != nil {
		return m.fail(types.ActionSaveAs, fmt.Errorf("check %s: %w", name, err))
	}
	if exists {
		return m.fail(types.ActionSaveAs, ErrFileExists)
	}

	_, billType := m.current()
	return m.run(ctx, types.ActionSaveAs, fmt.Sprintf("File %s saved successfully", name), func(ctx context.Context, _ *meter.Authorization) error {
		content, err := m.content()
		if err != nil {
			return err
		}

		now := m.now()
		file := &File{Created: now, Modified: now, Content: content, Name: name, BillType: billType}
		if err := m.deps.Store.SaveFile(ctx, file); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		m.Select(name, billType)
		m.selected(name)
		return nil
	})
}

// Print pays for and prints the rendered sheet.
func (m *Menu) Print(ctx context.Context) error {
	return m.run(ctx, types.ActionPrint, "Sent to printer", func(ctx context.Context, _ *meter.Authorization) error {
		if m.deps.Printer == nil {
			return errors.New("no printer available")
		}
		html, err := m.deps.Document.HTML()
		if err != nil {
			return fmt.Errorf("render document: %w", err)
		}
		return m.deps.Printer.Print(ctx, html)
	})
}

// EmailSupported reports whether Email can run on this client.
func (m *Menu) EmailSupported() bool {
	return m.deps.Mailer != nil && m.deps.Mailer.Supported()
}

// Email pays for and opens an email with the rendered sheet attached as
// Invoice.html. Unsupported clients are refused before any payment.
func (m *Menu) Email(ctx context.Context) error {
	if !m.EmailSupported() {
		return m.fail(types.ActionEmail, ErrEmailUnsupported)
	}

	return m.run(ctx, types.ActionEmail, "Email composed", func(ctx context.Context, _ *meter.Authorization) error {
		html, err := m.deps.Document.HTML()
		if err != nil {
			return fmt.Errorf("render document: %w", err)
		}
		return m.deps.Mailer.Send(ctx, Email{
			To:      m.deps.Recipients,
			Subject: fmt.Sprintf("%s attached", m.deps.AppName),
			Body:    "PFA",
			IsHTML:  true,
			Attachments: []Attachment{{
				Type: "base64",
				Path: base64.StdEncoding.EncodeToString([]byte(html)),
				Name: "Invoice.html",
			}},
		})
	})
}
