package sandbox

const testCatalog = `
tokens: [tok]
actors:
  - id: a1
    username: alice
    name: scraper
    title: Scraper
    versions:
      - number: "1.2"
      - number: "2.0"
        schema: '{"title":"Scraper input","type":"object","properties":{"url":{"type":"string"}}}'
    statuses: [RUNNING, RUNNING, SUCCEEDED]
    dataset: '[{"title":"A"}]'
  - username: apify
    name: web-scraper
    title: Web Scraper
    store: true
    schema: '{"title":"Web Scraper","type":"object","properties":{"startUrls":{"type":"array"}}}'
  - username: bob
    name: broken
    statuses: [FAILED]
    status_message: Out of memory
`
