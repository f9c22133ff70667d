package api

// Embedded dashboard served at /
const webUI = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Resin Portal</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #16161f;
            color: #d7d7e0;
            line-height: 1.6;
        }
        .container { max-width: 900px; margin: 0 auto; padding: 20px; }
        header {
            background: linear-gradient(135deg, #2b2b45 0%, #1e3a3a 100%);
            color: white;
            padding: 18px 20px;
            margin-bottom: 24px;
            border-radius: 8px;
            display: flex;
            align-items: center;
            justify-content: space-between;
        }
        header h1 { font-size: 20px; }
        header p { opacity: 0.8; font-size: 13px; }
        .toolbar { display: flex; align-items: center; gap: 6px; }
        .card {
            background: #1e1e2a;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 20px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.4);
        }
        .card h2 {
            font-size: 16px;
            margin-bottom: 15px;
            padding-bottom: 10px;
            border-bottom: 1px solid #30303f;
        }
        .status-row {
            display: flex;
            justify-content: space-between;
            padding: 8px 0;
            border-bottom: 1px solid #26262f;
        }
        .status-row:last-child { border-bottom: none; }
        .status-label { color: #8a8a99 }
        .status-value { font-weight: 500; }
        .status-online { color: #22c55e; }
        .status-offline { color: #ef4444; }
        .btn {
            background: #3b5bdb;
            color: white;
            border: none;
            padding: 9px 16px;
            border-radius: 6px;
            cursor: pointer;
            font-size: 13px;
            transition: background 0.2s;
        }
        .btn:hover { background: #364fc7; }
        .btn-secondary { background: #33333f; color: #c7c7d0; }
        .btn-secondary:hover { background: #41414d; }
        .btn-danger { background: #b02a2a; }
        .btn-danger:hover { background: #962424; }
        .btn-row { display: flex; flex-wrap: wrap; gap: 8px; margin-top: 14px; }
        .progress-track {
            background: #101018;
            border-radius: 6px;
            height: 18px;
            overflow: hidden;
            margin: 10px 0;
        }
        .progress-fill {
            background: linear-gradient(90deg, #2f9e44, #66d172);
            height: 100%;
            width: 0;
            transition: width 0.5s ease;
        }
        .relay-grid {
            display: grid;
            grid-template-columns: repeat(auto-fill, minmax(130px, 1fr));
            gap: 10px;
        }
        .relay-btn {
            border: 1px solid #3a3a4a;
            border-radius: 8px;
            padding: 14px 8px;
            text-align: center;
            cursor: pointer;
            background: #262630;
            color: #9a9aa8;
            transition: all 0.3s ease;
        }
        .relay-btn.relay-on {
            background: #22452a;
            border-color: #2f9e44;
            color: #7bdc8a;
        }
        .relay-name { font-size: 13px; font-weight: 600; }
        .relay-state { font-size: 11px; opacity: 0.8; }
        .file-item {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 10px 12px;
            background: #262630;
            border-radius: 6px;
            margin-bottom: 8px;
        }
        .file-item.selected { border: 1px solid #3b5bdb; }
        .file-name { font-size: 14px; }
        .file-meta { font-size: 12px; color: #8a8a99; }
        .file-actions { display: flex; gap: 6px; }
        .file-actions .btn { padding: 5px 10px; font-size: 12px; }
        .no-items { text-align: center; padding: 25px; color: #8a8a99; }
        #log {
            background: #101018;
            color: #a0aec0;
            padding: 15px;
            border-radius: 6px;
            font-family: monospace;
            font-size: 12px;
            max-height: 220px;
            overflow-y: auto;
        }
        .log-entry { margin-bottom: 4px; }
        .log-time { color: #5c7cfa; }
        .log-error { color: #ff8787; }
        .log-warn { color: #ffd43b; }

        /* Printing overlay */
        #print-overlay {
            position: fixed;
            inset: 0;
            background: rgba(10, 10, 16, 0.92);
            display: none;
            align-items: center;
            justify-content: center;
            z-index: 50;
        }
        #print-overlay.visible { display: flex; }
        .overlay-panel {
            background: #1e1e2a;
            border-radius: 12px;
            padding: 30px 40px;
            width: min(480px, 90vw);
            text-align: center;
        }
        .overlay-panel h2 { font-size: 18px; margin-bottom: 6px; border: none; }
        .overlay-file { color: #8a8a99; font-size: 13px; margin-bottom: 14px; word-break: break-all; }
        .overlay-percent { font-size: 34px; font-weight: 700; margin: 8px 0; }

        /* Settings modal */
        #settings-modal {
            position: fixed;
            inset: 0;
            background: rgba(10, 10, 16, 0.8);
            display: none;
            align-items: center;
            justify-content: center;
            z-index: 60;
        }
        #settings-modal.visible { display: flex; }
        .modal-panel {
            background: #1e1e2a;
            border-radius: 12px;
            padding: 24px;
            width: min(560px, 92vw);
            max-height: 85vh;
            overflow-y: auto;
        }
        .modal-panel h2 { font-size: 17px; margin-bottom: 14px; }
        .settings-section { margin-bottom: 18px; }
        .settings-section h3 {
            font-size: 13px;
            text-transform: uppercase;
            letter-spacing: 0.06em;
            color: #8a8a99;
            margin-bottom: 8px;
        }
        .settings-field {
            display: flex;
            justify-content: space-between;
            align-items: center;
            gap: 12px;
            padding: 5px 0;
        }
        .settings-field label { font-size: 13px; }
        .settings-field input, .settings-field select {
            background: #101018;
            border: 1px solid #3a3a4a;
            border-radius: 5px;
            color: #d7d7e0;
            padding: 6px 8px;
            font-size: 13px;
            width: 180px;
        }
        .modal-actions {
            display: flex;
            justify-content: flex-end;
            gap: 8px;
            margin-top: 16px;
            padding-top: 14px;
            border-top: 1px solid #30303f;
        }
        .pending-note { font-size: 12px; color: #ffd43b; margin-right: auto; align-self: center; }
        .plugin-item {
            display: flex;
            justify-content: space-between;
            align-items: center;
            padding: 8px 10px;
            background: #262630;
            border-radius: 6px;
            margin-bottom: 6px;
        }

        /* Toasts */
        #toasts {
            position: fixed;
            bottom: 20px;
            right: 20px;
            display: flex;
            flex-direction: column;
            gap: 8px;
            z-index: 100;
        }
        .toast {
            background: #2b8a3e;
            color: white;
            padding: 10px 16px;
            border-radius: 6px;
            font-size: 13px;
            box-shadow: 0 3px 8px rgba(0,0,0,0.5);
            animation: toast-in 0.2s ease;
        }
        .toast.toast-error { background: #c92a2a; }
        @keyframes toast-in { from { opacity: 0; transform: translateY(8px); } }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <div>
                <h1>Resin Portal</h1>
                <p>Printer dashboard gateway</p>
            </div>
            <div class="toolbar" id="relay-toolbar"></div>
            <button class="btn btn-secondary" onclick="openSettings()">Settings</button>
        </header>

        <div class="card">
            <h2>Printer Status</h2>
            <div class="status-row">
                <span class="status-label">Controller</span>
                <span class="status-value status-offline" id="controller-status">Unreachable</span>
            </div>
            <div class="status-row">
                <span class="status-label">Printer</span>
                <span class="status-value status-offline" id="printer-status">Disconnected</span>
            </div>
            <div class="status-row">
                <span class="status-label">Firmware</span>
                <span class="status-value" id="firmware">-</span>
            </div>
            <div class="status-row">
                <span class="status-label">State</span>
                <span class="status-value" id="print-state">UNKNOWN</span>
            </div>
            <div class="status-row">
                <span class="status-label">Z Position</span>
                <span class="status-value" id="z-position">-</span>
            </div>
            <div class="status-row">
                <span class="status-label">Selected File</span>
                <span class="status-value" id="selected-file">-</span>
            </div>
            <div class="progress-track"><div class="progress-fill" id="progress-fill"></div></div>
            <div class="btn-row">
                <button class="btn" onclick="printerCommand('connect')">Connect</button>
                <button class="btn btn-secondary" onclick="printerCommand('disconnect')">Disconnect</button>
                <button class="btn btn-secondary" onclick="printerCommand('home_z')">Home Z</button>
                <button class="btn btn-secondary" onclick="moveZ(-1)">Z -1</button>
                <button class="btn btn-secondary" onclick="moveZ(1)">Z +1</button>
                <button class="btn btn-secondary" onclick="moveZ(10)">Z +10</button>
                <button class="btn btn-danger" onclick="printerCommand('reboot')">Reboot</button>
                <button class="btn btn-danger" onclick="printerCommand('recover_usb')">Recover USB</button>
            </div>
        </div>

        <div class="card">
            <h2>Relay Control</h2>
            <div class="relay-grid" id="relay-grid">
                <div class="no-items">No relay data yet</div>
            </div>
        </div>

        <div class="card">
            <h2>Files</h2>
            <div id="file-list"><div class="no-items">Loading...</div></div>
            <div class="file-meta" id="usb-usage"></div>
            <div class="status-row">
                <span class="status-label">USB Gadget</span>
                <span class="status-value status-offline" id="usb-gadget">Unknown</span>
            </div>
            <div class="btn-row">
                <button class="btn btn-secondary" onclick="refreshFiles()">Refresh</button>
                <button class="btn btn-secondary" onclick="usbGadget('start')">Start Gadget</button>
                <button class="btn btn-secondary" onclick="usbGadget('stop')">Stop Gadget</button>
            </div>
        </div>

        <div class="card">
            <h2>Activity Log</h2>
            <div id="log"></div>
        </div>
    </div>

    <div id="print-overlay">
        <div class="overlay-panel">
            <h2 id="overlay-state">Printing</h2>
            <div class="overlay-file" id="overlay-file"></div>
            <div class="progress-track"><div class="progress-fill" id="overlay-fill"></div></div>
            <div class="overlay-percent" id="overlay-percent">0%</div>
            <div class="btn-row" style="justify-content:center">
                <button class="btn btn-secondary" id="overlay-pause" onclick="printerCommand('pause')">Pause</button>
                <button class="btn" id="overlay-resume" onclick="printerCommand('resume')">Resume</button>
                <button class="btn btn-danger" onclick="stopPrint()">Stop</button>
            </div>
        </div>
    </div>

    <div id="settings-modal">
        <div class="modal-panel">
            <h2>Settings</h2>
            <div id="settings-body"><div class="no-items">Loading...</div></div>
            <h2 style="margin-top:10px">Plugins</h2>
            <div id="plugins-body"></div>
            <input type="file" id="import-file" accept=".json" style="display:none" onchange="importConfig(this)">
            <div class="modal-actions">
                <span class="pending-note" id="pending-note"></span>
                <button class="btn btn-secondary" onclick="exportConfig()">Export</button>
                <button class="btn btn-secondary" onclick="document.getElementById('import-file').click()">Import</button>
                <button class="btn btn-secondary" onclick="closeSettings()">Cancel</button>
                <button class="btn btn-danger" onclick="resetSettings()">Reset Defaults</button>
                <button class="btn" onclick="saveSettings()">Save</button>
            </div>
        </div>
    </div>

    <div id="toasts"></div>

    <script>
        var pendingEdits = {};   // section -> key -> value, discarded on cancel
        var selectedFile = '';
        var pollTimer = null;

        function toast(message, isError) {
            var box = document.getElementById('toasts');
            var el = document.createElement('div');
            el.className = 'toast' + (isError ? ' toast-error' : '');
            el.textContent = message;
            box.appendChild(el);
            setTimeout(function () { el.remove(); }, 4000);
        }

        function logLine(message, level) {
            var logEl = document.getElementById('log');
            var time = new Date().toLocaleTimeString();
            var entry = document.createElement('div');
            entry.className = 'log-entry' + (level === 'error' ? ' log-error' : level === 'warn' ? ' log-warn' : '');
            entry.innerHTML = '<span class="log-time">[' + time + ']</span> ';
            entry.appendChild(document.createTextNode(message));
            logEl.appendChild(entry);
            while (logEl.children.length > 200) logEl.removeChild(logEl.firstChild);
            logEl.scrollTop = logEl.scrollHeight;
        }

        // api wraps fetch so every failure surfaces as exactly one toast.
        async function api(path, options) {
            var res;
            try {
                res = await fetch(path, options);
            } catch (err) {
                toast('Network error: ' + err.message, true);
                logLine('Network error on ' + path + ': ' + err.message, 'error');
                return null;
            }
            var data;
            try {
                data = await res.json();
            } catch (err) {
                toast('Bad response from gateway', true);
                return null;
            }
            if (data && data.success === false) {
                toast(data.error || data.message || 'Request failed', true);
                logLine((data.error || 'Request failed') + ' (' + path + ')', 'error');
                return null;
            }
            return data;
        }

        function renderStatus(snap) {
            var controllerEl = document.getElementById('controller-status');
            controllerEl.textContent = snap.reachable ? 'Online' : 'Unreachable';
            controllerEl.className = 'status-value ' + (snap.reachable ? 'status-online' : 'status-offline');

            var st = snap.status || {};
            var printerEl = document.getElementById('printer-status');
            printerEl.textContent = st.connected ? 'Connected' : 'Disconnected';
            printerEl.className = 'status-value ' + (st.connected ? 'status-online' : 'status-offline');

            document.getElementById('firmware').textContent = st.firmware_version || '-';

            var ps = st.print_status || {};
            var state = ps.state || 'UNKNOWN';
            document.getElementById('print-state').textContent = state;
            document.getElementById('z-position').textContent =
                (typeof st.z_position === 'number') ? st.z_position.toFixed(2) + ' mm' : '-';

            selectedFile = st.selected_file || '';
            document.getElementById('selected-file').textContent = selectedFile || '-';

            var pct = ps.progress_percent || 0;
            document.getElementById('progress-fill').style.width = pct + '%';

            // Overlay is visible exactly while a print is in flight
            var overlay = document.getElementById('print-overlay');
            var active = (state === 'PRINTING' || state === 'PAUSED');
            overlay.className = active ? 'visible' : '';
            if (active) {
                document.getElementById('overlay-state').textContent =
                    state === 'PAUSED' ? 'Paused' : 'Printing';
                document.getElementById('overlay-file').textContent = selectedFile;
                document.getElementById('overlay-fill').style.width = pct + '%';
                document.getElementById('overlay-percent').textContent = pct.toFixed(1) + '%';
                document.getElementById('overlay-pause').style.display = state === 'PRINTING' ? '' : 'none';
                document.getElementById('overlay-resume').style.display = state === 'PAUSED' ? '' : 'none';
            }

            if (snap.relays) renderRelays(snap.relays);
        }

        function renderRelays(relays) {
            var ids = Object.keys(relays).sort();
            var grid = document.getElementById('relay-grid');
            var bar = document.getElementById('relay-toolbar');
            if (ids.length === 0) {
                grid.innerHTML = '<div class="no-items">No relays enabled</div>';
                bar.innerHTML = '';
                return;
            }
            grid.innerHTML = '';
            bar.innerHTML = '';
            ids.forEach(function (id) {
                var relay = relays[id];
                var cls = relay.state ? 'relay-btn relay-on' : 'relay-btn';

                var card = document.createElement('div');
                card.className = cls;
                card.onclick = function () { toggleRelay(id); };
                card.innerHTML = '<div class="relay-name"></div><div class="relay-state">' +
                    (relay.state ? 'ON' : 'OFF') + '</div>';
                card.querySelector('.relay-name').textContent = relay.name || id;
                grid.appendChild(card);

                var chip = document.createElement('button');
                chip.className = 'btn ' + (relay.state ? '' : 'btn-secondary');
                chip.textContent = relay.name || id;
                chip.title = (relay.name || id) + ': ' + (relay.state ? 'ON' : 'OFF');
                chip.onclick = function () { toggleRelay(id); };
                bar.appendChild(chip);
            });
        }

        async function fetchStatus() {
            var snap = await api('/api/status');
            if (snap) renderStatus(snap);
        }

        async function refreshRelays() {
            var data = await api('/api/relays');
            if (data) renderRelays(data.relays || {});
        }

        async function toggleRelay(id) {
            var data = await api('/api/relays/' + encodeURIComponent(id) + '/toggle', { method: 'POST' });
            if (data) {
                logLine(data.message || (id + ' toggled'));
                refreshRelays();
            }
        }

        async function printerCommand(action) {
            var data = await api('/api/printer/' + action, { method: 'POST' });
            if (data) {
                toast(data.message || 'OK');
                logLine(data.message || action + ' ok');
                fetchStatus();
            }
        }

        async function moveZ(distance) {
            var data = await api('/api/printer/move_z', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ distance: distance })
            });
            if (data) { toast(data.message || 'Moved'); fetchStatus(); }
        }

        function stopPrint() {
            if (confirm('Stop the current print?')) printerCommand('stop');
        }

        async function refreshFiles() {
            var data = await api('/api/files');
            if (!data) return;
            var list = document.getElementById('file-list');
            var files = data.files || [];
            if (files.length === 0) {
                list.innerHTML = '<div class="no-items">No printable files on the USB share</div>';
            } else {
                list.innerHTML = '';
                files.forEach(function (f) {
                    var item = document.createElement('div');
                    item.className = 'file-item' + (f.name === selectedFile ? ' selected' : '');
                    var info = document.createElement('div');
                    var nm = document.createElement('div');
                    nm.className = 'file-name';
                    nm.textContent = f.name;
                    var meta = document.createElement('div');
                    meta.className = 'file-meta';
                    meta.textContent = f.size_human || '';
                    info.appendChild(nm);
                    info.appendChild(meta);
                    var actions = document.createElement('div');
                    actions.className = 'file-actions';
                    actions.innerHTML =
                        '<button class="btn btn-secondary">Select</button>' +
                        '<button class="btn">Print</button>' +
                        '<button class="btn btn-danger">Delete</button>';
                    actions.children[0].onclick = function () { fileCommand('select_file', f.name); };
                    actions.children[1].onclick = function () { fileCommand('print_file', f.name); };
                    actions.children[2].onclick = function () { deleteFile(f.name); };
                    item.appendChild(info);
                    item.appendChild(actions);
                    list.appendChild(item);
                });
            }
            document.getElementById('usb-usage').textContent =
                (data.usage && data.usage.human) ? data.usage.human : '';
        }

        async function refreshUSB() {
            var data = await api('/api/usb/status');
            if (!data || !data.usb) return;
            var el = document.getElementById('usb-gadget');
            var running = data.usb.service_running;
            el.textContent = running ? (data.usb.mounted ? 'Running (mounted)' : 'Running') : 'Stopped';
            el.className = 'status-value ' + (running ? 'status-online' : 'status-offline');
        }

        async function usbGadget(action) {
            var data = await api('/api/usb/' + action, { method: 'POST' });
            if (data) {
                toast(data.message || 'OK');
                refreshUSB();
                refreshFiles();
            }
        }

        async function fileCommand(action, name) {
            var data = await api('/api/printer/' + action, {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ filename: name })
            });
            if (data) { toast(data.message || 'OK'); fetchStatus(); refreshFiles(); }
        }

        async function deleteFile(name) {
            if (!confirm('Delete ' + name + '?')) return;
            var data = await api('/api/files/delete', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ filename: name })
            });
            if (data) { toast(data.message || 'Deleted'); refreshFiles(); }
        }

        // ---- Settings modal: edits accumulate in pendingEdits and only
        // ---- reach the controller on Save. Cancel discards everything.

        async function openSettings() {
            pendingEdits = {};
            updatePendingNote();
            document.getElementById('settings-modal').className = 'visible';
            var data = await api('/api/config');
            if (data) renderSettings(data.config || {});
            var plugins = await api('/api/plugins');
            if (plugins) renderPlugins(plugins.plugins || []);
        }

        function closeSettings() {
            pendingEdits = {};
            document.getElementById('settings-modal').className = '';
        }

        function recordEdit(section, key, value) {
            if (!pendingEdits[section]) pendingEdits[section] = {};
            pendingEdits[section][key] = value;
            updatePendingNote();
        }

        function updatePendingNote() {
            var n = 0;
            Object.keys(pendingEdits).forEach(function (s) {
                n += Object.keys(pendingEdits[s]).length;
            });
            document.getElementById('pending-note').textContent =
                n > 0 ? n + ' unsaved change(s)' : '';
        }

        function renderSettings(config) {
            var body = document.getElementById('settings-body');
            body.innerHTML = '';
            Object.keys(config).sort().forEach(function (section) {
                var values = config[section];
                if (typeof values !== 'object' || values === null) return;
                var sec = document.createElement('div');
                sec.className = 'settings-section';
                var h = document.createElement('h3');
                h.textContent = section.replace(/_/g, ' ');
                sec.appendChild(h);
                Object.keys(values).forEach(function (key) {
                    var value = values[key];
                    var field = document.createElement('div');
                    field.className = 'settings-field';
                    var label = document.createElement('label');
                    label.textContent = key.replace(/_/g, ' ');
                    field.appendChild(label);
                    var input;
                    if (typeof value === 'boolean') {
                        input = document.createElement('select');
                        input.innerHTML = '<option value="true">enabled</option><option value="false">disabled</option>';
                        input.value = String(value);
                        input.onchange = function () {
                            recordEdit(section, key, input.value === 'true');
                        };
                    } else if (Array.isArray(value)) {
                        input = document.createElement('input');
                        input.value = value.join(', ');
                        input.onchange = function () {
                            recordEdit(section, key, input.value.split(',').map(function (s) { return s.trim(); }));
                        };
                    } else {
                        input = document.createElement('input');
                        input.value = value;
                        input.onchange = function () {
                            var v = input.value;
                            if (typeof value === 'number' && v !== '' && !isNaN(Number(v))) v = Number(v);
                            recordEdit(section, key, v);
                        };
                    }
                    field.appendChild(input);
                    sec.appendChild(field);
                });
                body.appendChild(sec);
            });
            if (body.children.length === 0) {
                body.innerHTML = '<div class="no-items">No configuration available</div>';
            }
        }

        function renderPlugins(plugins) {
            var body = document.getElementById('plugins-body');
            body.innerHTML = '';
            if (plugins.length === 0) {
                body.innerHTML = '<div class="no-items">No plugins installed</div>';
                return;
            }
            plugins.forEach(function (p) {
                var item = document.createElement('div');
                item.className = 'plugin-item';
                var info = document.createElement('div');
                var nm = document.createElement('div');
                nm.className = 'file-name';
                nm.textContent = p.name + ' ' + (p.version || '');
                var meta = document.createElement('div');
                meta.className = 'file-meta';
                meta.textContent = (p.enabled ? 'enabled' : 'disabled') + (p.description ? ' - ' + p.description : '');
                info.appendChild(nm);
                info.appendChild(meta);
                var actions = document.createElement('div');
                actions.className = 'file-actions';
                actions.innerHTML =
                    '<button class="btn btn-secondary">' + (p.enabled ? 'Disable' : 'Enable') + '</button>' +
                    '<button class="btn btn-secondary">Reload</button>';
                actions.children[0].onclick = function () { pluginAction(p.name, p.enabled ? 'disable' : 'enable'); };
                actions.children[1].onclick = function () { pluginAction(p.name, 'reload'); };
                item.appendChild(info);
                item.appendChild(actions);
                body.appendChild(item);
            });
        }

        async function pluginAction(name, action) {
            var data = await api('/api/plugins/' + encodeURIComponent(name) + '/' + action, { method: 'POST' });
            if (data) {
                toast(data.message || 'OK');
                var plugins = await api('/api/plugins');
                if (plugins) renderPlugins(plugins.plugins || []);
                refreshRelays();
            }
        }

        async function saveSettings() {
            var edits = [];
            Object.keys(pendingEdits).forEach(function (section) {
                Object.keys(pendingEdits[section]).forEach(function (key) {
                    edits.push({ section: section, key: key, value: pendingEdits[section][key] });
                });
            });
            if (edits.length === 0) {
                closeSettings();
                return;
            }
            var data = await api('/api/config/bulk', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ edits: edits })
            });
            if (data) {
                toast(data.message || 'Settings saved');
                logLine('Saved ' + edits.length + ' setting(s)');
                closeSettings();
            }
            // On failure the modal stays open and pendingEdits is kept,
            // so the operator can retry or cancel.
        }

        function exportConfig() {
            window.location = '/api/config/export';
        }

        async function importConfig(input) {
            var f = input.files[0];
            input.value = '';
            if (!f) return;
            var form = new FormData();
            form.append('file', f);
            var data = await api('/api/config/import', { method: 'POST', body: form });
            if (data) {
                toast(data.message || 'Configuration imported');
                var cfg = await api('/api/config');
                if (cfg) renderSettings(cfg.config || {});
            }
        }

        async function resetSettings() {
            if (!confirm('Reset controller configuration to defaults?')) return;
            pendingEdits = {};
            updatePendingNote();
            var data = await api('/api/config/reset', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ section: '' })
            });
            if (data) {
                toast('Configuration reset');
                var cfg = await api('/api/config');
                if (cfg) renderSettings(cfg.config || {});
            }
        }

        // ---- Live updates: WebSocket with interval-poll fallback

        function startPolling() {
            if (!pollTimer) pollTimer = setInterval(fetchStatus, 3000);
        }

        function stopPolling() {
            if (pollTimer) { clearInterval(pollTimer); pollTimer = null; }
        }

        function connectWS() {
            var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            var ws = new WebSocket(proto + location.host + '/ws');
            ws.onopen = function () { stopPolling(); logLine('Live status stream connected'); };
            ws.onmessage = function (ev) {
                try {
                    var frame = JSON.parse(ev.data);
                    if (frame.type === 'status') renderStatus(frame.snapshot);
                } catch (err) { /* ignore malformed frames */ }
            };
            ws.onclose = function () {
                startPolling();
                setTimeout(connectWS, 5000);
            };
        }

        fetchStatus();
        refreshRelays();
        refreshFiles();
        refreshUSB();
        startPolling();
        connectWS();
    </script>
</body>
</html>`
