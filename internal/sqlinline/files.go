package sqlinline

const QInsertFile = `--sql 3883fad7-75d0-4a3c-b0d0-8297d3dbff03
insert into files (id, user_id, filename, content_type, size, storage_path, created_at)
values ($1::uuid, $2, $3, $4, $5, $6, $7);
`

const QSelectFileByID = `--sql a7fa4cea-82b3-4dab-960d-b88b1ddd0561
select id::text, user_id, filename, content_type, size, storage_path, created_at
from files
where id = $1::uuid;
`

const QSelectFileForUser = `--sql 04981b79-1a1d-48ce-ab4a-fc156402a372
select id::text, user_id, filename, content_type, size, storage_path, created_at
from files
where id = $1::uuid and user_id = $2;
`

const QPing = `--sql 1329d37b-ca63-4af4-94b3-33e1e7954235
select 1;
`
