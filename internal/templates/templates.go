// Package templates renders the bot's user-facing texts. Texts live in a YAML
// pack so wording can be edited without a rebuild; the file is hot-reloaded on
// change. Missing keys fall back to the compiled-in defaults.
package templates

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/ruzziq8-cell/buzzlab/internal/logging"
)

var log = logging.Component("templates")

// defaults are the compiled-in texts. The YAML pack overrides per key.
var defaults = map[string]string{
	"help": "*BuzzLab Bot Help*\n\n" +
		"Available commands:\n" +
		"1. *!add <Title> [| <Date> | <Interval>]*\n   Example: !add Meeting | 2024-12-31 | 60\n" +
		"2. *!list* - Show active tasks\n" +
		"3. *!done <Number>* - Mark a task done\n" +
		"4. *!login <user> <password>* - Manual login (if your number is not registered)\n" +
		"5. *!logout* - End the manual session",

	"login_usage":   "Wrong format. Use: !login <username> <password>",
	"login_failed":  "Login failed: {{.Error}}",
	"login_success": "Login successful! Hello {{.Name}}. Type !list to see your tasks.",

	"logout_success":       "You have been logged out.",
	"logout_not_logged_in": "You are not logged in.",

	"not_logged_in": "You are not logged in. Use: !login <username> <password>",

	"list_empty":  "No active tasks. Use !add to create one.",
	"list_header": "*Your Tasks:*",
	"list_failed": "Failed to fetch your tasks.",

	"add_usage":    "⚠️ Wrong format.\nExample: *!add Buy milk | 2024-12-31 | 60*",
	"add_bad_date": "⚠️ Invalid date format. Use YYYY-MM-DD.",
	"add_success": "✅ Task *\"{{.Title}}\"* added!" +
		"{{if .DueDate}}\n📅 Due: {{.DueDate}}{{end}}" +
		"{{if .Interval}}\n⏰ Reminder: every {{.Interval}} minutes{{end}}",
	"add_session_success": "✅ Task *\"{{.Title}}\"* added (via login session)!",
	"add_session_failed":  "❌ Failed to add task (login session): {{.Error}}",
	"add_not_registered": "⚠️ Your number is not registered to a BuzzLab profile.\n" +
		"Update your WhatsApp number in the website settings, or use !login <email> <password>.",
	"add_failed": "❌ Something went wrong while adding the task.",

	"done_invalid_index": "Invalid task number. Run !list first to see the numbers.",
	"done_failed":        "Failed to update the task.",
	"done_success":       "Task \"{{.Title}}\" marked as done! ✅",

	"trigger_done": "Manual reminder check complete. See the server log for details.",

	"reminder": "🔔 *TASK REMINDER* 🔔\n\n" +
		"Title: *{{.Title}}*\nPriority: {{.Priority}}\nDue: {{.DueDate}}\n\n" +
		"Don't forget! Type !done <number> once it is finished.",
}

// Pack is a compiled set of message templates, safe for concurrent Render and
// Reload.
type Pack struct {
	mu       sync.RWMutex
	compiled map[string]*template.Template
	path     string
}

// Load compiles the defaults, overlaid with the YAML pack at path when the
// path is non-empty. A missing or broken pack is not fatal: the defaults keep
// the bot talking.
func Load(path string) *Pack {
	p := &Pack{path: path}
	if err := p.Reload(); err != nil {
		log.WithError(err).Warn("template pack not loaded, using defaults")
	}
	return p
}

// Reload re-reads the YAML pack and recompiles. Keys that fail to compile keep
// their previous (or default) template.
func (p *Pack) Reload() error {
	texts := make(map[string]string, len(defaults))
	for key, text := range defaults {
		texts[key] = text
	}

	var loadErr error
	if p.path != "" {
		data, err := os.ReadFile(p.path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read template pack: %w", err)
		} else {
			overrides := map[string]string{}
			if err := yaml.Unmarshal(data, &overrides); err != nil {
				loadErr = fmt.Errorf("failed to parse template pack: %w", err)
			} else {
				for key, text := range overrides {
					texts[key] = text
				}
			}
		}
	}

	compiled := make(map[string]*template.Template, len(texts))
	for key, text := range texts {
		tmpl, err := template.New(key).Parse(text)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("template failed to compile, keeping default")
			tmpl, _ = template.New(key).Parse(defaults[key])
		}
		compiled[key] = tmpl
	}

	p.mu.Lock()
	p.compiled = compiled
	p.mu.Unlock()

	return loadErr
}

// Render executes the named template. Unknown keys render as a visible
// placeholder so a typo shows up in chat instead of silently dropping text.
func (p *Pack) Render(key string, data any) string {
	p.mu.RLock()
	tmpl := p.compiled[key]
	p.mu.RUnlock()

	if tmpl == nil {
		return "[missing template: " + key + "]"
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.WithError(err).WithField("key", key).Error("template execution failed")
		return "[broken template: " + key + "]"
	}
	return buf.String()
}

// Watch hot-reloads the pack when the file changes. Returns a stop function.
// No-op when no pack path is configured.
func (p *Pack) Watch() (func(), error) {
	if p.path == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save and a
	// direct watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch template dir: %w", err)
	}

	go func() {
		target := filepath.Clean(p.path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := p.Reload(); err != nil {
					log.WithError(err).Warn("template reload failed")
				} else {
					log.Info("template pack reloaded")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("template watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
