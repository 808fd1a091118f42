package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetdb/internal/core"
	"github.com/JonMunkholm/sheetdb/internal/logging"
)

// handleIndex renders the upload page with the current project list.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.ListProjects(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := uploadPage(projects, s.cfg.Upload.MaxFileSize).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render upload page", "error", err)
	}
}

// uploadPage is a single form: pick a project, choose a workbook, submit.
// The script posts to the JSON API and prints the ingest summary.
func uploadPage(projects []core.Project, maxFileSize int64) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if err := projectOptions(projects).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, pageTail, templ.EscapeString(formatSize(maxFileSize)))
		return err
	})
}

func projectOptions(projects []core.Project) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(projects) == 0 {
			_, err := io.WriteString(w, `<option value="" disabled selected>No projects yet</option>`)
			return err
		}
		for _, p := range projects {
			if _, err := fmt.Fprintf(w, `<option value="%d">%s</option>`,
				p.ID, templ.EscapeString(p.Name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func formatSize(n int64) string {
	if n <= 0 {
		return "no limit"
	}
	const mb = 1 << 20
	if n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>sheetdb</title>
<style>
body{font-family:system-ui,sans-serif;max-width:40rem;margin:3rem auto;padding:0 1rem;color:#222}
fieldset{border:1px solid #ccc;border-radius:6px;padding:1rem;margin-bottom:1rem}
label{display:block;margin:.5rem 0 .25rem}
pre{background:#f5f5f5;padding:1rem;overflow:auto}
.err{color:#b00020}
</style>
</head>
<body>
<h1>Upload a workbook</h1>
<form id="new-project">
<fieldset>
<label for="project_name">New project</label>
<input id="project_name" name="project_name" required>
<button type="submit">Create</button>
</fieldset>
</form>
<form id="upload">
<fieldset>
<label for="project">Project</label>
<select id="project" name="project" required>
`

const pageTail = `</select>
<label for="file">Workbook (.xlsx, .xls, .csv)</label>
<input id="file" name="file" type="file" accept=".xlsx,.xlsm,.xls,.csv" required>
<p><small>Maximum size: %s. Uploading replaces every sheet already stored for the project.</small></p>
<button type="submit">Upload</button>
</fieldset>
</form>
<pre id="result" hidden></pre>
<script>
const out = document.getElementById("result");
function show(body, ok) {
  out.hidden = false;
  out.className = ok ? "" : "err";
  out.textContent = JSON.stringify(body, null, 2);
}
async function send(url, init) {
  const res = await fetch(url, init);
  const body = await res.json();
  show(body, res.ok);
  return res.ok;
}
document.getElementById("new-project").addEventListener("submit", async (e) => {
  e.preventDefault();
  const name = document.getElementById("project_name").value;
  if (await send("/api/projects", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({project_name: name}),
  })) location.reload();
});
document.getElementById("upload").addEventListener("submit", async (e) => {
  e.preventDefault();
  const id = document.getElementById("project").value;
  const data = new FormData();
  data.append("file", document.getElementById("file").files[0]);
  await send("/api/upload/" + encodeURIComponent(id), {method: "POST", body: data});
});
</script>
</body>
</html>
`
