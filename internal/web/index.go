package web

// indexHTML renders the feed: wallet line, cash, holdings, quotes, status bar.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Stockdesk</title>
  <style>
    body { font-family:'Space Mono','JetBrains Mono',monospace; margin:2rem; color:#111; }
    .panel { border:3px solid #111; padding:1rem 1.5rem; margin-bottom:1.5rem; box-shadow:8px 8px 0 rgba(0,0,0,.15); }
    table { border-collapse:collapse; width:100%; }
    th, td { text-align:left; padding:.3rem .6rem; border-bottom:1px dashed rgba(0,0,0,.2); }
    #status.info { color:#1f4e8c; }
    #status.success { color:#1d7a33; }
    #status.error { color:#b3261e; }
    .busy::after { content:' (pending)'; color:#9c9c9c; }
  </style>
</head>
<body>
  <div class="panel">
    <div id="wallet">Wallet: not connected</div>
    <div id="cash">Cash: -</div>
    <div id="value">Portfolio value: -</div>
  </div>
  <div class="panel">
    <h3>Holdings</h3>
    <table><thead><tr><th>Symbol</th><th>Qty</th><th>Price</th><th>Value</th></tr></thead><tbody id="holdings"></tbody></table>
    <p id="empty" hidden>No holdings yet. Start trading to build your portfolio.</p>
  </div>
  <div class="panel">
    <h3>Stocks</h3>
    <ul id="quotes"></ul>
  </div>
  <div class="panel"><span id="status" class="info"></span></div>
  <script>
    const icons = { info:'ℹ', success:'✔', error:'⚠' };
    const $ = (id) => document.getElementById(id);
    const short = (a) => a.length > 14 ? a.slice(0,8) + '...' + a.slice(-6) : a;

    function cell(tag, text) {
      const el = document.createElement(tag);
      el.textContent = text;
      return el;
    }
    function session(s) {
      if (!s || !s.connected) { $('wallet').textContent = 'Wallet: not connected'; return; }
      $('wallet').textContent = 'Wallet: ' + short(s.account) + ' | ' + Number(s.network_balance).toFixed(4) + ' ETH';
    }
    function cash(c) {
      if (!c) return;
      $('cash').textContent = 'Cash: $' + c.cash;
      $('value').textContent = 'Portfolio value: $' + c.portfolio_value + (c.value_estimated ? ' (est.)' : '');
    }
    function holdings(rows) {
      rows = rows || [];
      $('empty').hidden = rows.length > 0;
      $('holdings').replaceChildren(...rows.map(r => {
        const tr = document.createElement('tr');
        tr.append(
          cell('td', r.symbol),
          cell('td', r.quantity),
          cell('td', r.price_known ? '$' + r.price : 'N/A'),
          cell('td', r.price_known ? '$' + r.value : 'N/A'));
        return tr;
      }));
    }
    function quotes(qs) {
      $('quotes').replaceChildren(...(qs || []).map(q =>
        cell('li', q.symbol + ' - $' + q.price + (q.estimated ? ' (est.)' : ''))));
    }
    function status(st) {
      if (!st) return;
      $('status').className = st.severity;
      $('status').textContent = icons[st.severity] + ' ' + st.message;
    }
    function busy(b) { $('status').classList.toggle('busy', b); }

    const es = new EventSource('/state/stream');
    es.addEventListener('snapshot', (e) => {
      const s = JSON.parse(e.data);
      session(s.session); cash(s.view.cash); holdings(s.view.holdings); quotes(s.view.quotes);
      status(s.status); busy(s.busy);
    });
    const handlers = { session, cash, holdings, quotes, status, busy };
    for (const kind in handlers) {
      es.addEventListener(kind, (e) => handlers[kind](JSON.parse(e.data).data));
    }
  </script>
</body>
</html>
`
