package launcher

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Spec carries everything the launcher and service templates need.
type Spec struct {
	// Name is the display name, e.g. "myserver-1.21.4".
	Name string
	// Root is the absolute install root.
	Root string
	// Jar is the server jar name inside Root.
	Jar string
	Xmx string
	Xms string
	// ExtraArgs are appended after the jar ("nogui" typically).
	ExtraArgs []string
}

// ID is the sanitized identifier used for filenames and service units.
func (s Spec) ID() string {
	return SafeName(s.Name)
}

// JavaArgs is the full java argument string the templates embed.
func (s Spec) JavaArgs() string {
	parts := []string{"-Xmx" + s.Xmx, "-Xms" + s.Xms, "-jar", s.Jar}
	parts = append(parts, s.ExtraArgs...)
	return strings.Join(parts, " ")
}

var shellTmpl = template.Must(template.New("sh").Parse(`#!/bin/sh
# Generated by mcsm. Regenerate with "mcsm setup".
cd "{{.Root}}" || exit 1
exec java {{.JavaArgs}}
`))

var desktopTmpl = template.Must(template.New("desktop").Parse(`# Generated by mcsm. Regenerate with "mcsm setup".
[Desktop Entry]
Type=Application
Name={{.Name}}
Comment=Minecraft server ({{.Jar}})
Exec={{.Root}}/{{.ID}}.sh
Path={{.Root}}
Terminal=true
Categories=Game;
`))

var batTmpl = template.Must(template.New("bat").Parse(`@echo off
rem Generated by mcsm. Regenerate with "mcsm setup".
cd /d "{{.Root}}"
java {{.JavaArgs}}
pause
`))

var commandTmpl = template.Must(template.New("command").Parse(`#!/bin/sh
# Generated by mcsm. Regenerate with "mcsm setup".
cd "{{.Root}}" || exit 1
exec java {{.JavaArgs}}
`))

var systemdTmpl = template.Must(template.New("systemd").Parse(`[Unit]
Description=Minecraft server {{.Name}} (managed by mcsm)
After=network-online.target

[Service]
WorkingDirectory={{.Root}}
ExecStart=java {{.JavaArgs}}
Restart=on-failure
SuccessExitStatus=0 143

[Install]
WantedBy=default.target
`))

var launchdTmpl = template.Must(template.New("launchd").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>java</string>
{{- range .Args}}
		<string>{{.}}</string>
{{- end}}
	</array>
	<key>WorkingDirectory</key>
	<string>{{.Root}}</string>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<false/>
</dict>
</plist>
`))

func renderShell(s Spec) ([]byte, error)   { return render(shellTmpl, s) }
func renderDesktop(s Spec) ([]byte, error) { return render(desktopTmpl, s) }
func renderBat(s Spec) ([]byte, error)     { return render(batTmpl, s) }
func renderCommand(s Spec) ([]byte, error) { return render(commandTmpl, s) }
func renderSystemd(s Spec) ([]byte, error) { return render(systemdTmpl, s) }

func renderLaunchd(s Spec) ([]byte, error) {
	args := []string{"-Xmx" + s.Xmx, "-Xms" + s.Xms, "-jar", s.Jar}
	args = append(args, s.ExtraArgs...)
	return render(launchdTmpl, struct {
		Label string
		Root  string
		Args  []string
	}{
		Label: launchdLabel(s.ID()),
		Root:  s.Root,
		Args:  args,
	})
}

func launchdLabel(id string) string {
	return "com.mcsm." + id
}

func render(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}
