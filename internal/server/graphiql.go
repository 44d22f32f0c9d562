package server

// graphiqlPage is served on GET requests that accept HTML. Assets load
// from a CDN; the fetcher posts back to the page's own path, so custom
// mount points work without configuration.
var graphiqlPage = []byte(`<!DOCTYPE html>
<html>
  <head>
    <title>GraphiQL</title>
    <style>
      body { margin: 0; }
      #graphiql { height: 100vh; }
    </style>
    <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css" />
  </head>
  <body>
    <div id="graphiql">Loading...</div>
    <script src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
    <script src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
    <script src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
    <script>
      const root = ReactDOM.createRoot(document.getElementById('graphiql'));
      root.render(
        React.createElement(GraphiQL, {
          fetcher: GraphiQL.createFetcher({ url: window.location.pathname }),
          defaultEditorToolsVisibility: true,
        })
      );
    </script>
  </body>
</html>
`)
